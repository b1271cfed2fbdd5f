package zerofs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs *ZeroFS, name string, data []byte) {
	t.Helper()
	f, err := fs.Create(name)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func readFile(t *testing.T, fs *ZeroFS, name string) []byte {
	t.Helper()
	f, err := fs.Open(name)
	require.NoError(t, err)
	buf := make([]byte, f.Size())
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}
	return buf[:n]
}

func TestCreateWriteCloseOpenReadRoundTrip(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	writeFile(t, fs, "note.txt", []byte("the quick brown fox"))
	require.NoError(t, fs.EnterReadMode())

	got := readFile(t, fs, "note.txt")
	require.Equal(t, "the quick brown fox", string(got))
}

func TestCreateOverwritesExisting(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	writeFile(t, fs, "a.bin", []byte("first"))
	writeFile(t, fs, "a.bin", []byte("second-version"))
	require.NoError(t, fs.EnterReadMode())

	files, err := fs.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "second-version", string(readFile(t, fs, "a.bin")))
}

func TestDeleteRemovesFileAndFreesSectors(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	writeFile(t, fs, "a.bin", []byte("payload"))
	require.NoError(t, fs.Delete("a.bin"))
	require.NoError(t, fs.EnterReadMode())

	_, err := fs.Stat("a.bin")
	require.Error(t, err)
	files, err := fs.List()
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestDeleteNonExistentFails(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	err := fs.Delete("missing.bin")
	require.Error(t, err)
}

func TestMutationsForbiddenInReadMode(t *testing.T) {
	fs, _, _ := newTestFS(t)
	_, err := fs.Create("a.bin")
	require.Error(t, err)
	require.Error(t, fs.Delete("a.bin"))
	_, err = fs.Append("a.bin")
	require.Error(t, err)
}

func TestSeekWithinAndPastEnd(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	writeFile(t, fs, "a.bin", []byte("0123456789"))
	require.NoError(t, fs.EnterReadMode())

	f, err := fs.Open("a.bin")
	require.NoError(t, err)
	require.NoError(t, f.Seek(5))
	buf := make([]byte, 5)
	n, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "56789", string(buf))

	require.NoError(t, f.Seek(-3))
	buf2 := make([]byte, 3)
	n, err = f.Read(buf2)
	require.NoError(t, err)
	require.Equal(t, "789", string(buf2[:n]))

	require.Error(t, f.Seek(100))
}

func TestAppendExtendsExistingFile(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())
	writeFile(t, fs, "log.txt", []byte("line1;"))

	f, err := fs.Append("log.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("line2;"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, fs.EnterReadMode())

	got := readFile(t, fs, "log.txt")
	require.Equal(t, "line1;line2;", string(got))
}

func TestRepackPurgesClosedZeroLengthFile(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())

	empty, err := fs.Create("empty.bin")
	require.NoError(t, err)
	// Close without writing: a finalized entry with a recognized extension
	// and zero bytes written, TypeLen != 0 but size() == 0.
	require.NoError(t, empty.Close())

	writeFile(t, fs, "b.txt", []byte("x"))
	require.NoError(t, fs.EnterReadMode())

	files, err := fs.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, uint32(1), files[0].Size)

	_, err = fs.Stat("empty.bin")
	require.Error(t, err)
	_, err = fs.Stat("b.txt")
	require.NoError(t, err)

	// The repack's id bookkeeping must still be consistent afterward.
	require.NoError(t, fs.EnterWriteMode())
	writeFile(t, fs, "c.bin", []byte("y"))
	require.NoError(t, fs.EnterReadMode())
	files, err = fs.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestMaxFilesTriggersRepack(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())

	names := []string{"a.bin", "b.bin", "c.bin"}
	for _, n := range names {
		writeFile(t, fs, n, []byte("x"))
	}
	// Delete one to make room, then create enough new files to force the
	// namemap id counter to roll past MaxFiles and repack.
	require.NoError(t, fs.Delete("a.bin"))
	writeFile(t, fs, "d.bin", []byte("y"))
	writeFile(t, fs, "e.bin", []byte("z"))
	require.NoError(t, fs.EnterReadMode())

	files, err := fs.List()
	require.NoError(t, err)
	require.Len(t, files, 4)
}

func TestWriteFailsWhenDeviceFull(t *testing.T) {
	fs, _, _ := newTestFS(t)
	require.NoError(t, fs.EnterWriteMode())

	// One byte more than the whole data flash holds.
	big := make([]byte, fs.numberOfSectors()*fs.cfg.SectorSize+1)
	for i := range big {
		big[i] = 'a'
	}
	f, err := fs.Create("huge.bin")
	require.NoError(t, err)
	_, err = f.Write(big)
	require.Error(t, err)
	code, ok := Code(err)
	require.True(t, ok)
	require.Equal(t, ErrNoSpace, code)
}
