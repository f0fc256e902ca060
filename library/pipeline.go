package library

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kif "github.com/bodgit/kif/image"
)

// Extension is the file extension used for encoded icons
const Extension = ".kif"

func isSource(file string) bool {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".gif", ".jpeg", ".jpg", ".png":
		return true
	}
	return false
}

func (l *Library) findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if file != base && info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() || !isSource(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (l *Library) worker(ctx context.Context, in <-chan string, fn func(string) error) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if err := fn(file); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	var first error
	for err := range errc {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (l *Library) run(path string, fn func(string) error) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := l.findFiles(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	workers := l.Workers
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		errc, err := l.worker(ctx, files, fn)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(cancelFunc, errcList...)
}

func convertFile(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}

	b := new(bytes.Buffer)
	if err := kif.Encode(b, m); err != nil {
		return "", err
	}

	out := strings.TrimSuffix(file, filepath.Ext(file)) + Extension
	if err := os.WriteFile(out, b.Bytes(), 0644); err != nil {
		return "", err
	}

	return out, nil
}

// Convert walks the directory tree at path and writes a .kif file next to
// every GIF, JPEG and PNG image found.
func (l *Library) Convert(path string) error {
	return l.run(path, func(file string) error {
		out, err := convertFile(file)
		if err != nil {
			return err
		}
		l.logger.Printf("Converted \"%s\" to \"%s\"\n", file, out)
		return nil
	})
}

// Import walks the directory tree at path and adds every GIF, JPEG and PNG
// image found to the icon database, named by its filename without the
// extension.
func (l *Library) Import(path string) error {
	if l.db == nil {
		return errors.New("no icon database")
	}
	return l.run(path, func(file string) error {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if err := l.db.AddIcon(name, file); err != nil {
			return err
		}
		l.logger.Printf("Imported \"%s\" as \"%s\"\n", file, name)
		return nil
	})
}
