package retropal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/retropal/indexed"
	"github.com/bodgit/retropal/pal"
)

func artifactName(file string, profile Profile) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + "." + profile.Name + ".png"
}

func isArtifact(name string) bool {
	for _, p := range profiles {
		if strings.HasSuffix(name, "."+p.Name+".png") {
			return true
		}
	}
	return false
}

func (r *RetroPal) findImages(ctx context.Context, base string) (<-chan string, <-chan error, error) {
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
			if info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			// Ignore any file greater than 16 MB
			if info.Size() > 16<<(10*2) {
				return nil
			}

			// Ignore output from a previous scan
			if isArtifact(info.Name()) {
				return nil
			}

			switch filepath.Ext(file) {
			case ".png", ".gif", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
			default:
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

func (r *RetroPal) imageWorker(ctx context.Context, profile Profile, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if err := r.convertFile(file, profile); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func (r *RetroPal) convertFile(file string, profile Profile) error {
	sha, buf, err := DecodeFile(file)
	if err != nil {
		r.logger.Printf("Skipping \"%s\": %v\n", file, err)
		return nil
	}

	cfg := r.engine.Config().String()

	var cached pal.Palette
	if r.db != nil && len(profile.Fixed) == 0 {
		cached, err = r.db.Find(sha, profile.CacheKey(), cfg)
		if err != nil {
			return err
		}
	}

	res, err := r.engine.Process(Request{
		Pixels:        buf,
		SourcePalette: cached,
		Profile:       profile,
	})
	if err != nil {
		return err
	}

	if r.db != nil && len(profile.Fixed) == 0 && cached == nil {
		if err := r.db.Store(sha, profile.CacheKey(), cfg, pal.Palette(res.Palette)); err != nil {
			return err
		}
	}

	b := new(bytes.Buffer)
	if err := indexed.Encode(b, res.Pixels, indexed.Palette(res.Palette)); err != nil {
		return err
	}

	target := artifactName(file, profile)
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.Write(b.Bytes()); err != nil {
		return err
	}

	r.logger.Printf("Wrote \"%s\" with %d colors\n", target, len(res.Palette))

	return nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
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

// Scan walks a directory tree converting every image it finds with the
// given profile, writing each result alongside its source file.
func (r *RetroPal) Scan(path string, profile Profile) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := r.findImages(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < 10; i++ {
		errc, err := r.imageWorker(ctx, profile, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
