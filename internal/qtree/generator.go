package qtree

import (
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/mosaic"
	"github.com/stephenfox/image2qtree/internal/raster"
)

var (
	errDegenerateProbe = errors.New("qtree: degenerate resolution probe")

	// ErrCanceled is returned when the progress callback asks to stop.
	// Tiles written before the cancellation are left on disk.
	ErrCanceled = errors.New("qtree: generation canceled")
)

// Sink receives produced files. The io package provides a concurrent
// file-writing implementation; tests use in-memory sinks.
type Sink interface {
	Write(path string, data []byte) error
}

// ProgressFunc is polled once per finished tile. Returning false cancels
// generation after the current tile.
type ProgressFunc func(completed, total int) bool

// TileRecord describes one written tile.
type TileRecord struct {
	Level, Col, Row int
	ImagePath       string
}

type tileKey struct{ level, col, row int }

// Generator walks the quadtree depth first, producing leaf tiles from the
// composite and every coarser tile by reducing its four children.
type Generator struct {
	Source   mosaic.View
	RootName string
	TileSize int
	Encoder  *raster.Encoder
	CropBBox geometry.BBox2i
	Profile  Profile
	Sink     Sink
	Progress ProgressFunc

	levels    int
	completed int
	total     int

	mu      sync.Mutex
	written map[tileKey]TileRecord
}

// Levels reports the pyramid depth: level 0 is the single root tile,
// Levels()-1 the leaf level at full resolution.
func (g *Generator) Levels() int {
	if g.levels == 0 {
		size := max(g.Source.Cols(), g.Source.Rows())
		g.levels = 1
		for g.TileSize<<(g.levels-1) < size {
			g.levels++
		}
	}
	return g.levels
}

// Written looks up the record of a produced tile.
func (g *Generator) Written(level, col, row int) (TileRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.written[tileKey{level, col, row}]
	return rec, ok
}

// WrittenCount reports how many tiles have been produced so far.
func (g *Generator) WrittenCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.written)
}

// FileType reports the configured tile file type.
func (g *Generator) FileType() string {
	if g.Encoder == nil || g.Encoder.FileType == "" {
		return "png"
	}
	return g.Encoder.FileType
}

// Generate produces the full tree and its sidecars.
func (g *Generator) Generate() error {
	if g.TileSize <= 0 {
		return fmt.Errorf("qtree: tile size %d", g.TileSize)
	}
	if g.CropBBox.Empty() {
		return fmt.Errorf("qtree: empty crop region")
	}
	g.written = make(map[tileKey]TileRecord)
	g.total = g.countTiles()
	g.completed = 0

	if _, err := g.generate(0, 0, 0); err != nil {
		return err
	}
	for _, sc := range g.Profile.RootSidecars(g) {
		if err := g.Sink.Write(sc.Path, sc.Data); err != nil {
			return err
		}
	}
	return nil
}

// countTiles counts the tiles whose region intersects the crop bbox, for
// progress reporting.
func (g *Generator) countTiles() int {
	total := 0
	for level := 0; level < g.Levels(); level++ {
		s := g.TileSize << (g.Levels() - 1 - level)
		c0, c1 := g.CropBBox.MinX/s, (g.CropBBox.MaxX-1)/s
		r0, r1 := g.CropBBox.MinY/s, (g.CropBBox.MaxY-1)/s
		total += (c1 - c0 + 1) * (r1 - r0 + 1)
	}
	return total
}

func (g *Generator) tick() bool {
	g.completed++
	if g.Progress == nil {
		return true
	}
	return g.Progress(g.completed, g.total)
}

// generate returns the tile's pixels so the parent can reduce them, or nil
// when the region holds no data.
func (g *Generator) generate(level, col, row int) (*raster.PixelBuffer, error) {
	s := g.TileSize << (g.Levels() - 1 - level)
	region := geometry.NewBBox2i(col*s, row*s, s, s)
	if !region.Intersects(g.CropBBox) {
		return nil, nil
	}

	var tile *raster.PixelBuffer
	if level == g.Levels()-1 {
		buf, err := g.Source.Read(region)
		if err != nil {
			return nil, fmt.Errorf("qtree: read tile %d/%d/%d: %w", level, col, row, err)
		}
		tile = buf
	} else {
		asm := raster.NewPixelBuffer(2*g.TileSize, 2*g.TileSize, g.Source.Bands())
		any := false
		for j := 0; j < 2; j++ {
			for i := 0; i < 2; i++ {
				child, err := g.generate(level+1, 2*col+i, 2*row+j)
				if err != nil {
					return nil, err
				}
				if child != nil {
					asm.Compose(child, i*g.TileSize, j*g.TileSize)
					any = true
				}
			}
		}
		if !any {
			if !g.tick() {
				return nil, ErrCanceled
			}
			return nil, nil
		}
		tile = asm.BoxReduce2()
	}

	if tile == nil || tile.IsTransparent() {
		if !g.tick() {
			return nil, ErrCanceled
		}
		return nil, nil
	}

	ext := g.Encoder.ExtensionFor(tile)
	rel := g.Profile.TilePath(level, col, row) + "." + ext
	data, err := g.Encoder.Encode(tile, ext)
	if err != nil {
		return nil, fmt.Errorf("qtree: encode tile %d/%d/%d: %w", level, col, row, err)
	}
	full := path.Join(g.RootName, rel)
	if err := g.Sink.Write(full, data); err != nil {
		return nil, fmt.Errorf("qtree: write tile %d/%d/%d: %w", level, col, row, err)
	}

	rec := TileRecord{Level: level, Col: col, Row: row, ImagePath: rel}
	g.mu.Lock()
	g.written[tileKey{level, col, row}] = rec
	g.mu.Unlock()

	for _, sc := range g.Profile.NodeSidecars(g, rec) {
		if err := g.Sink.Write(sc.Path, sc.Data); err != nil {
			return nil, err
		}
	}
	if !g.tick() {
		return nil, ErrCanceled
	}
	return tile, nil
}
