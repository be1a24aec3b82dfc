package pkg

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"runtime"

	"github.com/paulmach/orb"

	"github.com/stephenfox/image2qtree/internal/geometry"
	"github.com/stephenfox/image2qtree/internal/georef"
	"github.com/stephenfox/image2qtree/internal/io"
	"github.com/stephenfox/image2qtree/internal/mosaic"
	"github.com/stephenfox/image2qtree/internal/qtree"
	"github.com/stephenfox/image2qtree/internal/raster"
	"github.com/stephenfox/image2qtree/internal/tiler"
	"github.com/stephenfox/image2qtree/tools"
)

type ITiler interface {
	RunTiler(opts *tiler.TilerOptions) error
}

type Tiler struct{}

func NewTiler() ITiler {
	return &Tiler{}
}

// preparedInput bundles one opened source with its derived georeference.
type preparedInput struct {
	source raster.Source
	ref    *georef.GeoReference
}

// Starts the tiling process
func (t *Tiler) RunTiler(opts *tiler.TilerOptions) error {
	if !opts.Mode.GeoReferenced() {
		return t.runPlain(opts)
	}
	return t.runGeoReferenced(opts)
}

// runPlain builds a bare pyramid over the pixel grid of a single input.
func (t *Tiler) runPlain(opts *tiler.TilerOptions) error {
	src, err := raster.Open(opts.InputFiles[0])
	if err != nil {
		return err
	}
	tools.LogOutput("Processing file " + filepath.Base(opts.InputFiles[0]))

	profile := &qtree.PlainProfile{
		ProfileName:  "none",
		WithManifest: opts.Mode == tiler.ModeGigapanNoProj,
	}
	if opts.Mode == tiler.ModeGigapanNoProj {
		profile.ProfileName = "gigapan_noproj"
	}

	view := maskView(opts, src)
	composite := &mosaic.Composite{}
	composite.SetDraftMode(true)
	composite.Insert(view, 0, 0, geometry.BBox2i{MaxX: src.Cols(), MaxY: src.Rows()})

	channelType := src.ChannelType()
	if ct, ok := raster.ParseChannelType(opts.ChannelType); ok && ct != raster.ChannelNone {
		channelType = ct
	}
	return t.generate(opts, composite, composite.BBox(), profile, channelType)
}

func (t *Tiler) runGeoReferenced(opts *tiler.TilerOptions) error {
	profile, err := makeProfile(opts)
	if err != nil {
		return err
	}

	// Open every input, fold normalization ranges, derive georeferences and
	// probe each one for the resolution it needs.
	totalResolution := 1024
	loValue, hiValue := math.Inf(1), math.Inf(-1)
	inputs := make([]preparedInput, 0, len(opts.InputFiles))
	for _, filename := range opts.InputFiles {
		src, err := raster.Open(filename)
		if err != nil {
			return err
		}
		tools.LogOutput("Adding file " + filename)

		if opts.Normalize {
			lo, hi, err := mosaic.ValueRange(maskView(opts, src))
			if err != nil {
				return err
			}
			loValue = math.Min(loValue, lo)
			hiValue = math.Max(hiValue, hi)
			log.Printf("Pixel range for %q: [%g %g]    Output dynamic range: [%g %g]",
				filename, lo, hi, loValue, hiValue)
		}

		ref, err := makeInputGeoRef(src, opts)
		if err != nil {
			return err
		}
		defer ref.Close()
		inputs = append(inputs, preparedInput{source: src, ref: ref})

		res, err := probeResolution(profile, src, ref)
		if err != nil {
			return err
		}
		if res > totalResolution {
			totalResolution = res
		}
	}

	if opts.GlobalResolution > 0 {
		if opts.GlobalResolution < totalResolution {
			log.Printf("Warning: forced resolution %d is below the computed %d; inputs will be undersampled",
				opts.GlobalResolution, totalResolution)
		}
		totalResolution = opts.GlobalResolution
	}
	tools.LogOutput(fmt.Sprintf("Total resolution: %d pixels", totalResolution))

	aspect := opts.AspectRatio
	if aspect < 1 {
		aspect = 1
	}
	xResolution := totalResolution / aspect
	yResolution := totalResolution

	outputRef := profile.OutputGeoRef(xResolution, yResolution, inputs[0].ref.Datum())
	defer outputRef.Close()

	composite := &mosaic.Composite{}
	composite.SetDraftMode(!opts.Multiband)
	wantRGB := false
	for _, in := range inputs {
		if in.source.Bands() == 3 {
			wantRGB = true
		}
	}
	if opts.Terrain {
		wantRGB = false
	}

	for _, in := range inputs {
		view := t.prepareView(opts, in, wantRGB, loValue, hiValue)

		edge := mosaic.ZeroEdge
		if in.ref.IsGlobalGeographic(in.source.Cols(), in.source.Rows()) {
			tools.LogOutput("\t--> Detected global overlay. Using cylindrical edge extension to hide the seam.")
			edge = mosaic.CylindricalEdge
		}

		xform := georef.NewGeoTransform(in.ref, outputRef)
		tview, footprint := mosaic.NewTransformView(view, xform, edge)
		if footprint.Empty() {
			return fmt.Errorf("tiler: %s does not project into the output grid", in.source.Filename())
		}

		// Sources that wrap the date line are added on both sides.
		if footprint.MaxX > totalResolution {
			composite.Insert(tview, -totalResolution, 0, footprint)
		}
		// Sources in the 180..360 range only go on the far side.
		if footprint.MinX < xResolution {
			composite.Insert(tview, 0, 0, footprint)
		}
	}

	totalBBox, dataBBox := planBBoxes(opts, profile, composite, outputRef, xResolution, yResolution, totalResolution)
	composite.Prepare(totalBBox)
	if opts.Mode == tiler.ModeKML || opts.Mode == tiler.ModeGigapan {
		dataBBox = composite.BBox().Crop(geometry.BBox2i{MaxX: totalBBox.Width(), MaxY: totalBBox.Height()})
	}

	channelType := inputs[0].source.ChannelType()
	if ct, ok := raster.ParseChannelType(opts.ChannelType); ok && ct != raster.ChannelNone {
		channelType = ct
	}
	if opts.Terrain {
		channelType = raster.ChannelU16
	}

	tools.LogOutput("Generating " + opts.Mode.String() + " overlay...")
	return t.generate(opts, composite, dataBBox, profile, channelType)
}

// maskView wraps a source with its no-data knockout. An explicit
// --nodata wins over a file-declared value; both arrive in the source's
// native channel scale and are converted to the decoded range before
// comparison.
func maskView(opts *tiler.TilerOptions, src raster.Source) mosaic.View {
	var view mosaic.View = mosaic.SourceView{Src: src}
	if opts.NodataSet {
		return mosaic.MaskedView{Src: view, Nodata: src.ChannelType().Normalized(opts.Nodata)}
	}
	if nd, ok := src.NodataValue(); ok {
		return mosaic.MaskedView{Src: view, Nodata: src.ChannelType().Normalized(nd)}
	}
	return view
}

// prepareView chains the per-input pixel transformations in evaluation
// order: nodata masking, scale and offset, then normalization.
func (t *Tiler) prepareView(opts *tiler.TilerOptions, in preparedInput, wantRGB bool, lo, hi float64) mosaic.View {
	view := maskView(opts, in.source)
	if !tools.IsFloatEqual(opts.PixelScale, 1) || !tools.IsFloatEqual(opts.PixelOffset, 0) {
		view = mosaic.ScaledView{Src: view, Scale: opts.PixelScale, Offset: opts.PixelOffset}
	}
	if opts.Normalize {
		view = mosaic.RescaledView{Src: view, Lo: lo, Hi: hi}
	}
	if wantRGB && in.source.Bands() == 1 {
		view = mosaic.RGBView{Src: view}
	}
	return view
}

// generate drives the quadtree over the assembled composite.
func (t *Tiler) generate(opts *tiler.TilerOptions, composite *mosaic.Composite, dataBBox geometry.BBox2i, profile qtree.Profile, channelType raster.ChannelType) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	writer := io.NewTileWriter(workers)
	encoder := newEncoder(opts, channelType)

	lastPercent := -1
	gen := &qtree.Generator{
		Source:   composite,
		RootName: opts.OutputName,
		TileSize: opts.TileSize,
		Encoder:  encoder,
		CropBBox: dataBBox,
		Profile:  profile,
		Sink:     writer,
		Progress: func(completed, total int) bool {
			if opts.Silent || total == 0 {
				return true
			}
			percent := 100 * completed / total
			if percent != lastPercent && percent%10 == 0 {
				tools.LogOutput(fmt.Sprintf("  %d%% complete", percent))
				lastPercent = percent
			}
			return true
		},
	}

	genErr := gen.Generate()
	if err := writer.Close(); err != nil {
		return err
	}
	if genErr != nil {
		return genErr
	}
	tools.LogOutput(fmt.Sprintf("Wrote %d tiles across %d levels.", gen.WrittenCount(), gen.Levels()))
	printNotes(opts)
	return nil
}

// newEncoder builds the tile encoder. Terrain sets are pinned to PNG:
// JPEG cannot carry the 16 bit monochrome samples heightmap readers
// expect.
func newEncoder(opts *tiler.TilerOptions, channelType raster.ChannelType) *raster.Encoder {
	fileType := opts.FileType
	if opts.Terrain {
		fileType = "png"
	}
	return &raster.Encoder{
		FileType:       fileType,
		ChannelType:    channelType,
		JpegQuality:    opts.JpegQuality,
		PNGCompression: opts.PNGCompression,
	}
}

func printNotes(opts *tiler.TilerOptions) {
	switch opts.Mode {
	case tiler.ModeUniview:
		log.Println("Note: merge the texture and terrain config files into a single file (terrain info below texture info).")
		log.Println("Both output sets should live in the same directory, texture under Texture and terrain under Terrain.")
	case tiler.ModeCelestia:
		log.Printf("Place %s.ssc in Celestia's extras dir", opts.OutputName)
		log.Printf("Place %s.ctx and the output dir (%s) in extras/textures/hires", opts.OutputName, opts.OutputName)
	}
}

// probeResolution measures the needed pyramid width at five pixels spread
// over the image, dodging projection singularities at the center.
func probeResolution(profile qtree.Profile, src raster.Source, ref *georef.GeoReference) (int, error) {
	probeRef := georef.NewGeoReference(ref.Datum())
	defer probeRef.Close()
	xform := georef.NewGeoTransform(ref, probeRef)

	cols, rows := src.Cols(), src.Rows()
	probes := []geometry.Vector2{
		{X: float64(cols / 2), Y: float64(rows / 2)},
		{X: float64(cols/2 + cols/4), Y: float64(rows / 2)},
		{X: float64(cols/2 - cols/4), Y: float64(rows / 2)},
		{X: float64(cols / 2), Y: float64(rows/2 + rows/4)},
		{X: float64(cols / 2), Y: float64(rows/2 - rows/4)},
	}

	best := 0
	var lastErr error
	for _, p := range probes {
		res, err := profile.ComputeResolution(xform, p)
		if err != nil {
			// singular probe points are expected near poles
			lastErr = err
			continue
		}
		if res > best {
			best = res
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("tiler: every resolution probe failed for %s: %w", src.Filename(), lastErr)
	}
	return best, nil
}

// makeInputGeoRef derives the georeference of one input, honoring manual
// bboxes, datum and projection overrides, and nudges.
func makeInputGeoRef(src raster.Source, opts *tiler.TilerOptions) (*georef.GeoReference, error) {
	ref, ok := src.GeoReference()
	if !ok {
		if !opts.ManualBBox.Set {
			return nil, fmt.Errorf("tiler: %s carries no georeference and no manual bbox was given", src.Filename())
		}
		ref = georef.NewGeoReference(georef.WGS84Datum())
		ref.SetGeographic()
	}

	switch opts.Datum {
	case tiler.DatumWGS84:
		ref.SetDatum(georef.WGS84Datum())
	case tiler.DatumLunar:
		ref.SetDatum(georef.LunarDatum())
	case tiler.DatumMars:
		ref.SetDatum(georef.MarsDatum())
	case tiler.DatumSphere:
		ref.SetDatum(georef.SphereDatum(opts.DatumRadius))
	}

	if opts.ManualBBox.Set {
		mb := opts.ManualBBox
		m := geometry.NewAffine(
			(mb.East-mb.West)/float64(src.Cols()),
			-(mb.North-mb.South)/float64(src.Rows()),
			mb.West, mb.North)
		if err := ref.SetTransform(m); err != nil {
			return nil, err
		}
	}

	switch opts.Projection {
	case tiler.ProjectionSinusoidal:
		ref.SetSinusoidal(opts.Proj.Lon)
	case tiler.ProjectionMercator:
		ref.SetMercator(opts.Proj.Lat, opts.Proj.Lon, opts.Proj.Scale)
	case tiler.ProjectionTransverseMerc:
		ref.SetTransverseMercator(opts.Proj.Lat, opts.Proj.Lon, opts.Proj.Scale)
	case tiler.ProjectionOrthographic:
		ref.SetOrthographic(opts.Proj.Lat, opts.Proj.Lon)
	case tiler.ProjectionStereographic:
		ref.SetStereographic(opts.Proj.Lat, opts.Proj.Lon, opts.Proj.Scale)
	case tiler.ProjectionLambertAzimuth:
		ref.SetLambertAzimuthal(opts.Proj.Lat, opts.Proj.Lon)
	case tiler.ProjectionLambertConfConn:
		ref.SetLambertConformal(opts.Proj.P1, opts.Proj.P2, opts.Proj.Lat, opts.Proj.Lon)
	case tiler.ProjectionUTM:
		zone := opts.Proj.UTMZone
		north := zone > 0
		if zone < 0 {
			zone = -zone
		}
		ref.SetUTM(zone, north)
	case tiler.ProjectionPlateCarree:
		ref.SetGeographic()
	}

	if opts.NudgeX != 0 || opts.NudgeY != 0 {
		ref.Nudge(opts.NudgeX, opts.NudgeY)
	}
	return ref, nil
}

// planBBoxes picks the generated region (totalBBox) and the portion holding
// data (dataBBox) on the global grid, per mode.
func planBBoxes(opts *tiler.TilerOptions, profile qtree.Profile, composite *mosaic.Composite, outputRef *georef.GeoReference, xRes, yRes, totalRes int) (totalBBox, dataBBox geometry.BBox2i) {
	bbox := composite.BBox()
	canvas := geometry.BBox2i{MaxX: xRes, MaxY: yRes}

	switch opts.Mode {
	case tiler.ModeKML:
		bbox = bbox.Crop(canvas)
		dim := 2 << int(math.Log2(float64(max(bbox.Width(), bbox.Height()))))
		if dim > totalRes {
			dim = totalRes
		}
		totalBBox = geometry.NewBBox2i((bbox.MinX/dim)*dim, (bbox.MinY/dim)*dim, dim, dim)
		if !totalBBox.Contains(bbox) {
			if totalBBox.MaxX == xRes {
				totalBBox.MinX -= dim
			} else {
				totalBBox.MaxX += dim
			}
			if totalBBox.MaxY == yRes {
				totalBBox.MinY -= dim
			} else {
				totalBBox.MaxY += dim
			}
		}
		if kml, ok := profile.(*qtree.KMLProfile); ok {
			kml.OriginX, kml.OriginY = totalBBox.MinX, totalBBox.MinY
			kml.XRes, kml.YRes = xRes, yRes
			kml.LonLatBBox = geographicBound(totalBBox, xRes, yRes)
		}
		dataBBox = bbox.Translate(-totalBBox.MinX, -totalBBox.MinY)

	case tiler.ModeGigapan:
		totalBBox = bbox
		bbox = bbox.Crop(canvas)
		if gp, ok := profile.(*qtree.GigapanProfile); ok {
			gp.LonLatBBox = geographicBound(totalBBox, xRes, yRes)
		}
		dataBBox = bbox.Translate(-totalBBox.MinX, -totalBBox.MinY)

	default:
		totalBBox = bbox.
			Union(geometry.BBox2i{MaxX: totalRes, MaxY: totalRes}).
			Crop(geometry.BBox2i{MaxX: totalRes, MaxY: totalRes})
		aligned := geometry.BBox2i{
			MinX: (bbox.MinX / opts.TileSize) * opts.TileSize,
			MinY: (bbox.MinY / opts.TileSize) * opts.TileSize,
			MaxX: int(math.Ceil(float64(bbox.MaxX)/float64(opts.TileSize))) * opts.TileSize,
			MaxY: int(math.Ceil(float64(bbox.MaxY)/float64(opts.TileSize))) * opts.TileSize,
		}
		dataBBox = aligned.Crop(totalBBox)
	}
	return totalBBox, dataBBox
}

// geographicBound converts a global pixel box to geographic degrees.
func geographicBound(b geometry.BBox2i, xRes, yRes int) orb.Bound {
	return orb.Bound{
		Min: orb.Point{
			-180 + 360*float64(b.MinX)/float64(xRes),
			180 - 360*float64(b.MaxY)/float64(yRes),
		},
		Max: orb.Point{
			-180 + 360*float64(b.MaxX)/float64(xRes),
			180 - 360*float64(b.MinY)/float64(yRes),
		},
	}
}

// makeProfile instantiates the policy bundle for the selected mode.
func makeProfile(opts *tiler.TilerOptions) (qtree.Profile, error) {
	switch opts.Mode {
	case tiler.ModeKML:
		return &qtree.KMLProfile{
			MaxLODPixels:    opts.MaxLODPixels,
			DrawOrderOffset: opts.DrawOrderOffset,
		}, nil
	case tiler.ModeTMS:
		return qtree.TMSProfile{}, nil
	case tiler.ModeGMap:
		return qtree.GMapProfile{}, nil
	case tiler.ModeUniview:
		return &qtree.UniviewProfile{ModuleName: opts.ModuleName, Terrain: opts.Terrain}, nil
	case tiler.ModeCelestia:
		return &qtree.CelestiaProfile{ModuleName: opts.ModuleName}, nil
	case tiler.ModeGigapan:
		return &qtree.GigapanProfile{}, nil
	}
	return nil, fmt.Errorf("tiler: no profile for mode %s", opts.Mode)
}
