package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/coupon"
	"github.com/muratkomurcu/october4mama/internal/storage/memory"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func newImporter(minFiles int) *importer {
	return &importer{lg: zap.NewNop(), capacity: 1000, fpr: 0.0001, minFiles: minFiles}
}

func TestImporter_Collect(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.gz", "SHARED01", "onlya01", "TRIPLE01", "SHARED01", "bad code", "x"),
		writeGz(t, dir, "b.gz", "shared01", "ONLYB001", "TRIPLE01"),
		writeGz(t, dir, "c.gz", "TRIPLE01", "", "ONLYC001"),
	}

	for _, tt := range []struct {
		name     string
		minFiles int
		want     []string
	}{
		{name: "TwoFiles", minFiles: 2, want: []string{"SHARED01", "TRIPLE01"}},
		{name: "AllFiles", minFiles: 3, want: []string{"TRIPLE01"}},
		{name: "AnyFile", minFiles: 1, want: []string{"ONLYA01", "ONLYB001", "ONLYC001", "SHARED01", "TRIPLE01"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			codes, err := newImporter(tt.minFiles).collect(context.Background(), files)
			require.NoError(t, err)
			require.Equal(t, tt.want, codes)
		})
	}
}

func TestImporter_CollectErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeGz(t, dir, "a.gz", "CODE0001")

	_, err := newImporter(2).collect(context.Background(), []string{path})
	require.ErrorContains(t, err, "min files must be between 1 and 1")

	_, err = newImporter(1).collect(context.Background(), []string{filepath.Join(dir, "missing.gz")})
	require.Error(t, err)

	plain := filepath.Join(dir, "plain.gz")
	require.NoError(t, os.WriteFile(plain, []byte("CODE0001\n"), 0o600))
	_, err = newImporter(1).collect(context.Background(), []string{plain})
	require.ErrorContains(t, err, "gzip reader")
}

func TestImporter_Write(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Coupons()
	svc := coupon.NewService(repo)
	require.NoError(t, svc.Create(ctx, &coupon.Rule{
		Code:         "EXISTING",
		DiscountType: coupon.DiscountFixed,
		Value:        decimal.NewFromInt(5),
		Active:       true,
	}))

	template := coupon.Rule{
		DiscountType: coupon.DiscountPercentage,
		Value:        decimal.NewFromInt(15),
		MaxUses:      1,
		Active:       true,
		AppliesTo:    coupon.ScopeAll,
	}
	created, existing, err := newImporter(2).write(ctx, svc, []string{"EXISTING", "NEWCODE1", "NEWCODE2"}, template, 2)
	require.NoError(t, err)
	require.Equal(t, 2, created)
	require.Equal(t, 1, existing)

	got, err := repo.FindByCode(ctx, "NEWCODE1")
	require.NoError(t, err)
	require.Equal(t, coupon.DiscountPercentage, got.DiscountType)
	require.True(t, got.Value.Equal(decimal.NewFromInt(15)))
	require.Equal(t, 1, got.MaxUses)

	kept, err := repo.FindByCode(ctx, "EXISTING")
	require.NoError(t, err)
	require.Equal(t, coupon.DiscountFixed, kept.DiscountType)
}

func TestValidCode(t *testing.T) {
	require.True(t, validCode("ABCD"))
	require.True(t, validCode("OCT4MAMA2024"))
	require.False(t, validCode("ABC"))
	require.False(t, validCode("AB-CD"))
	require.False(t, validCode(strings.Repeat("A", maxCodeLen+1)))
}
