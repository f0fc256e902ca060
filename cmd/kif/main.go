package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/kif"
	kifimage "github.com/bodgit/kif/image"
	"github.com/bodgit/kif/library"
	"github.com/urfave/cli/v2"
)

const defaultDB = "kif.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func needArgs(c *cli.Context, n int) {
	if c.NArg() < n {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
}

func withDB(c *cli.Context, fn func(*library.IconDB) error) error {
	db, err := library.NewIconDB(c.String("db"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer db.Close()

	if err := fn(db); err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func encodeImage(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return err
	}

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := kifimage.Encode(w, m); err != nil {
		return err
	}

	return w.Close()
}

func encodeRaw(in, out string, width, height int) error {
	if width < 1 || width > 0xffff || height < 1 || height > 0xffff {
		return errors.New("width and height must be between 1 and 65535")
	}

	b, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	_, err = kif.WriteFile(out, b, &kif.Header{Width: uint16(width), Height: uint16(height)})
	return err
}

func decodeImage(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := kifimage.Decode(f)
	if err != nil {
		return err
	}

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := png.Encode(w, m); err != nil {
		return err
	}

	return w.Close()
}

func decodeRaw(in, out string, depth int) error {
	b, _, err := kif.ReadFile(in, depth)
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func info(w io.Writer, file string) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	icon, err := kif.Parse(b)
	if err != nil {
		return err
	}

	h := icon.Header
	fmt.Fprintf(w, "Dimensions:      %dx%d\n", h.Width, h.Height)
	fmt.Fprintf(w, "Bytes per pixel: %d\n", h.BPP)
	fmt.Fprintf(w, "Palette entries: %d\n", h.PaletteEntries)
	fmt.Fprintf(w, "RLE entries:     %d\n", h.RLEEntries)
	fmt.Fprintf(w, "Size:            %d bytes\n", h.Size())

	return nil
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "kif"
	app.Usage = "Kompakt Icon Format utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"KIF_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to icon database",
		},
		&cli.IntFlag{
			Name:    "workers",
			EnvVars: []string{"KIF_WORKERS"},
			Value:   library.DefaultWorkers,
			Usage:   "number of files to process concurrently",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "encode",
			Usage:     "Encode an image as a .kif icon",
			ArgsUsage: "INPUT OUTPUT",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "raw",
					Usage: "input is raw 32-bit RGBA pixels",
				},
				&cli.IntFlag{
					Name:  "width",
					Usage: "width of raw input",
				},
				&cli.IntFlag{
					Name:  "height",
					Usage: "height of raw input",
				},
			},
			Action: func(c *cli.Context) error {
				needArgs(c, 2)

				var err error
				if c.Bool("raw") {
					err = encodeRaw(c.Args().Get(0), c.Args().Get(1), c.Int("width"), c.Int("height"))
				} else {
					err = encodeImage(c.Args().Get(0), c.Args().Get(1))
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "decode",
			Usage:     "Decode a .kif icon to PNG",
			ArgsUsage: "INPUT OUTPUT",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "raw",
					Usage: "write raw pixels instead of PNG",
				},
				&cli.IntFlag{
					Name:  "depth",
					Value: 32,
					Usage: "bits per pixel of raw output, 24 or 32",
				},
			},
			Action: func(c *cli.Context) error {
				needArgs(c, 2)

				var err error
				if c.Bool("raw") {
					err = decodeRaw(c.Args().Get(0), c.Args().Get(1), c.Int("depth"))
				} else {
					err = decodeImage(c.Args().Get(0), c.Args().Get(1))
				}
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "info",
			Usage:     "Show the header of a .kif icon",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				needArgs(c, 1)

				if err := info(c.App.Writer, c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "convert",
			Usage:     "Convert every image in a directory tree to .kif",
			ArgsUsage: "DIRECTORY",
			Action: func(c *cli.Context) error {
				needArgs(c, 1)

				l := library.New(nil, newLogger(c))
				l.Workers = c.Int("workers")

				if err := l.Convert(c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "import",
			Usage:     "Import every image in a directory tree into the icon database",
			ArgsUsage: "DIRECTORY",
			Action: func(c *cli.Context) error {
				needArgs(c, 1)

				return withDB(c, func(db *library.IconDB) error {
					l := library.New(db, newLogger(c))
					l.Workers = c.Int("workers")
					return l.Import(c.Args().First())
				})
			},
		},
		{
			Name:      "add",
			Usage:     "Add an image to the icon database",
			ArgsUsage: "NAME FILE",
			Action: func(c *cli.Context) error {
				needArgs(c, 2)

				return withDB(c, func(db *library.IconDB) error {
					return db.AddIcon(c.Args().Get(0), c.Args().Get(1))
				})
			},
		},
		{
			Name:      "export",
			Usage:     "Write an icon from the icon database to a .kif file",
			ArgsUsage: "NAME FILE",
			Action: func(c *cli.Context) error {
				needArgs(c, 2)

				return withDB(c, func(db *library.IconDB) error {
					b, err := db.FindIcon(c.Args().Get(0))
					if err != nil {
						return err
					}
					if b == nil {
						return fmt.Errorf("no icon named \"%s\"", c.Args().Get(0))
					}
					return os.WriteFile(c.Args().Get(1), b, 0644)
				})
			},
		},
		{
			Name:  "list",
			Usage: "List the icons in the icon database",
			Action: func(c *cli.Context) error {
				return withDB(c, func(db *library.IconDB) error {
					names, err := db.Names()
					if err != nil {
						return err
					}
					for _, name := range names {
						fmt.Fprintln(c.App.Writer, name)
					}
					return nil
				})
			},
		},
		{
			Name:      "remove",
			Usage:     "Remove an icon from the icon database",
			ArgsUsage: "NAME",
			Action: func(c *cli.Context) error {
				needArgs(c, 1)

				return withDB(c, func(db *library.IconDB) error {
					return db.RemoveIcon(c.Args().First())
				})
			},
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
