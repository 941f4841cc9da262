package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakesalomon/DBSpaces/internal/common"
	"github.com/jakesalomon/DBSpaces/internal/config"
	"github.com/jakesalomon/DBSpaces/internal/report"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.DataPageSize = 2
	cfg.BlobPageSize = 6
	return cfg
}

func mapResolver(links map[string]string) LinkResolver {
	return func(symlink string) (string, error) {
		if raw, ok := links[symlink]; ok {
			return raw, nil
		}
		return "", errors.New("dangling symlink")
	}
}

func TestBuildBasicModel(t *testing.T) {
	t.Parallel()

	sum := &report.Summary{
		Spaces: []report.SpaceRow{
			{Number: 1, Name: "rootdbs", Owner: "informix", FirstChunk: 1, NChunks: 1, PageSizeKB: 2},
			{Number: 3, Name: "data_dbs", Owner: "informix", FirstChunk: 6, NChunks: 2, PageSizeKB: 2},
		},
		Chunks: []report.ChunkRow{
			{Number: 1, DBspace: 1, SizePages: 150000, FreePages: 97333, Path: "/links/js_server.rootdbs.P.001"},
			{Number: 6, DBspace: 3, SizePages: 51200, FreePages: 40000, Path: "/links/js_server.data_dbs.P.001"},
			{Number: 11, DBspace: 3, SizePages: 51200, FreePages: 51200, Path: "/links/js_server.data_dbs.P.002"},
		},
	}
	links := map[string]string{
		"/links/js_server.rootdbs.P.001":  "/primary/files/file.00001",
		"/links/js_server.data_dbs.P.001": "/primary/files/file.00006",
		"/links/js_server.data_dbs.P.002": "/primary/files/file.00011",
	}

	inv, err := Build(testConfig(), "js_server", sum, mapResolver(links))
	require.NoError(t, err)

	require.Len(t, inv.Spaces, 2)
	require.Len(t, inv.Chunks, 3)

	data, ok := inv.SpaceByName("data_dbs")
	require.True(t, ok)
	assert.Equal(t, int64(102400), data.TotalPages)
	assert.Equal(t, int64(91200), data.FreePages)

	c6 := inv.Chunks[6]
	assert.True(t, c6.IsFirst)
	assert.Equal(t, "data_dbs", c6.DBspaceName)
	assert.Equal(t, 2, c6.PageSizeKB)
	assert.Equal(t, "/primary/files/file.00006", c6.RawFilePath)

	assert.False(t, inv.Chunks[11].IsFirst)
}

func TestBuildPctFullBounds(t *testing.T) {
	t.Parallel()

	sum := &report.Summary{
		Spaces: []report.SpaceRow{
			{Number: 1, Name: "full_dbs", FirstChunk: 1, NChunks: 1, PageSizeKB: 2},
			{Number: 2, Name: "empty_dbs", FirstChunk: 2, NChunks: 1, PageSizeKB: 2},
			{Number: 3, Name: "no_chunks", FirstChunk: 0, NChunks: 0, PageSizeKB: 2},
		},
		Chunks: []report.ChunkRow{
			{Number: 1, DBspace: 1, SizePages: 1000, FreePages: 0, Path: "/links/a"},
			{Number: 2, DBspace: 2, SizePages: 1000, FreePages: 1000, Path: "/links/b"},
		},
	}
	inv, err := Build(testConfig(), "js_server", sum, nil)
	require.NoError(t, err)

	for _, num := range inv.SpaceNumbers() {
		space := inv.Spaces[num]
		pct, defined := space.PctFull()
		if space.TotalPages == 0 {
			assert.False(t, defined, "%s: pct_full must be undefined with zero pages", space.Name)
			continue
		}
		require.True(t, defined)
		assert.GreaterOrEqual(t, pct, 0.0, space.Name)
		assert.LessOrEqual(t, pct, 100.0, space.Name)
	}

	pct, defined := inv.Spaces[1].PctFull()
	require.True(t, defined)
	assert.InDelta(t, 100.0, pct, 0.001)
}

func TestBuildBlobRescaling(t *testing.T) {
	t.Parallel()

	// Sizes arrive in data-page units, free counts in blob-page units.
	// With 6 KB blob pages over 2 KB data pages the free count triples.
	sum := &report.Summary{
		Spaces: []report.SpaceRow{
			{Number: 5, Name: "blob_dbs", FirstChunk: 9, NChunks: 1, PageSizeKB: 2, KindChar: 'B'},
		},
		Chunks: []report.ChunkRow{
			{Number: 9, DBspace: 5, SizePages: 30000, FreePages: 3000, BlobPages: 9800, Path: "/links/c", BlobChar: 'B'},
		},
	}
	inv, err := Build(testConfig(), "js_server", sum, nil)
	require.NoError(t, err)

	space := inv.Spaces[5]
	assert.Equal(t, KindBlob, space.Kind)
	assert.Equal(t, int64(9000), inv.Chunks[9].FreePages)
	assert.Equal(t, int64(30000), space.TotalPages)
	assert.Equal(t, int64(9000), space.FreePages)

	pct, defined := space.PctFull()
	require.True(t, defined)
	assert.InDelta(t, 70.0, pct, 0.001)
}

func TestBuildDanglingDBspaceFails(t *testing.T) {
	t.Parallel()

	sum := &report.Summary{
		Spaces: []report.SpaceRow{
			{Number: 1, Name: "rootdbs", FirstChunk: 1, NChunks: 1, PageSizeKB: 2},
		},
		Chunks: []report.ChunkRow{
			{Number: 7, DBspace: 42, SizePages: 1000, FreePages: 500, Path: "/links/x"},
		},
	}
	_, err := Build(testConfig(), "js_server", sum, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBuildMirrorRows(t *testing.T) {
	t.Parallel()

	sum := &report.Summary{
		Spaces: []report.SpaceRow{
			{Number: 4, Name: "mirr_dbs", FirstChunk: 5, NChunks: 1, PageSizeKB: 2, Mirrored: true},
		},
		Chunks: []report.ChunkRow{
			{Number: 5, DBspace: 4, SizePages: 25600, FreePages: 20100, Path: "/links/js_server.mirr_dbs.P.001"},
			{Number: 5, DBspace: 4, SizePages: 25600, FreePages: 20100, Path: "/links/js_server.mirr_dbs.m.001", IsMirror: true},
		},
	}
	links := map[string]string{
		"/links/js_server.mirr_dbs.P.001": "/primary/files/file.00005",
		"/links/js_server.mirr_dbs.m.001": "/mirror/files/file.00005",
	}
	inv, err := Build(testConfig(), "js_server", sum, mapResolver(links))
	require.NoError(t, err)

	c := inv.Chunks[5]
	assert.Equal(t, "/links/js_server.mirr_dbs.m.001", c.MirrorSymlinkPath)
	assert.Equal(t, "/mirror/files/file.00005", c.MirrorRawFilePath)

	// The mirror half must not double the space totals.
	assert.Equal(t, int64(25600), inv.Spaces[4].TotalPages)
}

func TestBuildMirrorRowForUnmirroredSpaceFails(t *testing.T) {
	t.Parallel()

	sum := &report.Summary{
		Spaces: []report.SpaceRow{
			{Number: 1, Name: "rootdbs", FirstChunk: 1, NChunks: 1, PageSizeKB: 2},
		},
		Chunks: []report.ChunkRow{
			{Number: 1, DBspace: 1, SizePages: 1000, FreePages: 500, Path: "/links/p"},
			{Number: 1, DBspace: 1, SizePages: 1000, FreePages: 500, Path: "/links/m", IsMirror: true},
		},
	}
	_, err := Build(testConfig(), "js_server", sum, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmirrored")
}
