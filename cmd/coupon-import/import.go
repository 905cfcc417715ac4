package main

import (
	"bufio"
	"context"
	"math/bits"
	"os"
	"slices"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
)

const (
	defaultFPR    = 0.001
	progressEvery = 1_000_000
	minCodeLen    = 4
	maxCodeLen    = 32
	// maxFiles bounds the per-code file bitmask.
	maxFiles = bits.UintSize
)

type importer struct {
	lg       *zap.Logger
	capacity uint
	fpr      float64
	minFiles int
}

// collect returns the sorted codes that appear in at least minFiles files.
//
// Pass one builds a bloom filter per file. Pass two re-reads every file and
// marks each code with the files whose filters claim it, so a code seen in a
// single file is never kept unless minFiles is 1.
func (im *importer) collect(ctx context.Context, files []string) ([]string, error) {
	switch {
	case len(files) > maxFiles:
		return nil, errors.Errorf("at most %d files are supported", maxFiles)
	case im.minFiles < 1 || im.minFiles > len(files):
		return nil, errors.Errorf("min files must be between 1 and %d", len(files))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return nil, errors.Wrapf(err, "check file %s", f)
		}
	}

	im.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters := make([]*bloom.BloomFilter, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.capacity, im.fpr)
			var count uint64
			if err := streamGzFile(gctx, path, func(code string) {
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					im.lg.Info("Pass 1 progress", zap.Int("file", i+1), zap.Uint64("codes", count))
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}
			im.lg.Info("Pass 1 complete", zap.Int("file", i+1), zap.Uint64("total_codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	im.lg.Info("Pass 2: finding shared codes")
	results := make([]map[string]uint, len(files))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			own := uint(1) << uint(i)
			if err := streamGzFile(gctx, path, func(code string) {
				if _, seen := candidates[code]; seen {
					return
				}
				mask := own
				for j, f := range filters {
					if j != i && f.TestString(code) {
						mask |= uint(1) << uint(j)
					}
				}
				if bits.OnesCount(mask) >= im.minFiles {
					candidates[code] = mask
				}
			}); err != nil {
				return errors.Wrapf(err, "scan file %d for candidates", i+1)
			}
			im.lg.Info("Pass 2 complete", zap.Int("file", i+1), zap.Int("candidates", len(candidates)))
			results[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}
	codes := make([]string, 0, len(merged))
	for code, mask := range merged {
		if bits.OnesCount(mask) >= im.minFiles {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	im.lg.Info("Shared codes found", zap.Int("count", len(codes)))
	return codes, nil
}

// write creates one coupon per code from the template rule. Codes that
// already exist are counted and left untouched.
func (im *importer) write(ctx context.Context, svc *coupon.Service, codes []string, template coupon.Rule, workers int) (created, existing int, err error) {
	im.lg.Info("Writing coupons", zap.Int("count", len(codes)), zap.Int("workers", workers))

	var nCreated, nExisting atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, code := range codes {
		g.Go(func() error {
			r := template
			r.Code = code
			switch err := svc.Create(gctx, &r); {
			case errors.Is(err, coupon.ErrDuplicateCode):
				nExisting.Add(1)
			case err != nil:
				return err
			default:
				nCreated.Add(1)
			}
			if done := nCreated.Load() + nExisting.Load(); done%10_000 == 0 {
				im.lg.Info("Write progress", zap.Int64("written", done), zap.Int("total", len(codes)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(nCreated.Load()), int(nExisting.Load()), err
	}
	return int(nCreated.Load()), int(nExisting.Load()), nil
}

// streamGzFile calls fn for every well-formed code of a gzip-compressed file,
// one code per line, in canonical form.
func streamGzFile(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := coupon.NormalizeCode(scanner.Text())
		if validCode(code) {
			fn(code)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func validCode(code string) bool {
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
