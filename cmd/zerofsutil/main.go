// Command zerofsutil drives a ZeroFS instance backed by a two-file flash
// image (data.img, super.img) in a directory, for manual inspection and
// scripting against the in-memory reference backend. It is not a
// production flashing tool; the real SPI NOR driver is out of scope for
// this module (spec.md §1).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	flags "github.com/jessevdk/go-flags"

	"github.com/gega/zerofs"
	"github.com/gega/zerofs/flashmem"
)

type options struct {
	Dir string `short:"d" long:"dir" description:"directory holding data.img and super.img" default:"."`
}

var opts options

type session struct {
	cfg   zerofs.Config
	data  *flashmem.Data
	super *flashmem.Super
	fs    *zerofs.ZeroFS
}

func openSession() (*session, error) {
	cfg := zerofs.DefaultConfig()
	s := &session{cfg: cfg}
	s.data = flashmem.NewData(cfg.FlashSizeKB*1024, cfg.SectorSize)
	s.super = flashmem.NewSuper(cfg.SuperSectorSize)

	dataPath := filepath.Join(opts.Dir, "data.img")
	superPath := filepath.Join(opts.Dir, "super.img")
	if _, err := os.Stat(dataPath); err == nil {
		if err := s.data.LoadFrom(dataPath); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(superPath); err == nil {
		if err := s.super.LoadFrom(superPath); err != nil {
			return nil, err
		}
	}

	fs, err := zerofs.New(cfg, s.data, s.super)
	if err != nil {
		return nil, err
	}
	s.fs = fs
	return s, nil
}

func (s *session) persist() error {
	if err := s.data.SaveTo(filepath.Join(opts.Dir, "data.img")); err != nil {
		return err
	}
	return s.super.SaveTo(filepath.Join(opts.Dir, "super.img"))
}

type formatCmd struct{}

func (c *formatCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.fs.Format(); err != nil {
		return err
	}
	return s.persist()
}

type lsCmd struct{}

func (c *lsCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	files, err := s.fs.List()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Printf("%-8s type=%d size=%s\n", f.Name, f.Type, humanize.Bytes(uint64(f.Size)))
	}
	return nil
}

type statCmd struct {
	Args struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *statCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	info, err := s.fs.Stat(c.Args.Name)
	if err != nil {
		return err
	}
	fmt.Printf("name=%s type=%d size=%s\n", info.Name, info.Type, humanize.Bytes(uint64(info.Size)))
	return nil
}

type usageCmd struct{}

func (c *usageCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	u := s.fs.Usage()
	sz := uint64(u.SectorSize)
	fmt.Printf("free=%s used=%s bad=%s files=%d\n",
		humanize.Bytes(uint64(u.FreeSectors)*sz),
		humanize.Bytes(uint64(u.UsedSectors)*sz),
		humanize.Bytes(uint64(u.BadSectors)*sz),
		u.Files)
	return nil
}

type putCmd struct {
	Args struct {
		Name string `positional-arg-name:"name"`
		Path string `positional-arg-name:"path"`
	} `positional-args:"yes" required:"yes"`
}

func (c *putCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args.Path)
	if err != nil {
		return err
	}
	if err := s.fs.EnterWriteMode(); err != nil {
		return err
	}
	f, err := s.fs.Create(c.Args.Name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := s.fs.EnterReadMode(); err != nil {
		return err
	}
	return s.persist()
}

type getCmd struct {
	Args struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *getCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	f, err := s.fs.Open(c.Args.Name)
	if err != nil {
		return err
	}
	buf := make([]byte, f.Size())
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m
		if err != nil {
			break
		}
	}
	_, err = os.Stdout.Write(buf[:n])
	return err
}

type rmCmd struct {
	Args struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *rmCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.fs.EnterWriteMode(); err != nil {
		return err
	}
	if err := s.fs.Delete(c.Args.Name); err != nil {
		return err
	}
	if err := s.fs.EnterReadMode(); err != nil {
		return err
	}
	return s.persist()
}

type repackCmd struct{}

func (c *repackCmd) Execute(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.fs.EnterWriteMode(); err != nil {
		return err
	}
	if err := s.fs.EnterReadMode(); err != nil {
		return err
	}
	return s.persist()
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	_, _ = parser.AddCommand("format", "erase both superblock banks", "", &formatCmd{})
	_, _ = parser.AddCommand("ls", "list files", "", &lsCmd{})
	_, _ = parser.AddCommand("stat", "show one file's metadata", "", &statCmd{})
	_, _ = parser.AddCommand("usage", "show free/used/bad sector counts", "", &usageCmd{})
	_, _ = parser.AddCommand("put", "write a file from disk", "", &putCmd{})
	_, _ = parser.AddCommand("get", "read a file to stdout", "", &getCmd{})
	_, _ = parser.AddCommand("rm", "delete a file", "", &rmCmd{})
	_, _ = parser.AddCommand("repack", "force a superblock repack", "", &repackCmd{})

	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
