package tools

import (
	"flag"
)

type FlagsImage2Qtree struct {
	OutputName *string `json:"output_name"`
	Help       *bool   `json:"help"`
	Version    *bool   `json:"version"`

	// input options
	ForceDatum  *string
	DatumRadius *float64
	PixelScale  *float64
	PixelOffset *float64
	Normalize   *bool
	Nodata      *float64

	// output options
	Mode            *string `json:"mode"`
	FileType        *string `json:"file_type"`
	ChannelType     *string `json:"channel_type"`
	ModuleName      *string
	Terrain         *bool
	JpegQuality     *float64
	PNGCompression  *int
	TileSize        *int
	MaxLODPixels    *int
	DrawOrderOffset *int
	Multiband       *bool
	AspectRatio     *int
	GlobalRes       *int

	// projection options
	North      *float64
	South      *float64
	East       *float64
	West       *float64
	Global     *bool
	Projection *string
	UTMZone    *int
	ProjLat    *float64
	ProjLon    *float64
	ProjScale  *float64
	P1         *float64
	P2         *float64
	NudgeX     *float64
	NudgeY     *float64

	Workers      *int
	Silent       *bool
	LogTimestamp *bool

	// Set records which flags were given explicitly on the command line.
	Set map[string]bool

	// Inputs are the positional input image files.
	Inputs []string
}

func ParseFlagsImage2Qtree() FlagsImage2Qtree {
	outputName := defineStringFlag("output-name", "o", "", "Specifies the base output directory. Defaults to the first input file name without its extension.")
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	version := defineBoolFlag("version", "v", false, "Displays the version of image2qtree.")

	forceDatum := defineStringFlag("force-datum", "", "NONE", "Override the input datum [NONE|WGS84|LUNAR|MARS|SPHERE].")
	datumRadius := defineFloat64Flag("datum-radius", "", 0, "Radius in meters to use with --force-datum SPHERE.")
	pixelScale := defineFloat64Flag("pixel-scale", "", 1.0, "Scale factor to apply to input pixels.")
	pixelOffset := defineFloat64Flag("pixel-offset", "", 0.0, "Offset to apply to input pixels.")
	normalize := defineBoolFlag("normalize", "", false, "Normalize input images so that their full dynamic range falls in between [0,1].")
	nodata := defineFloat64Flag("nodata", "", 0, "Pixel value to treat as missing data, made transparent in the output.")

	mode := defineStringFlag("mode", "m", "KML", "Specify the output metadata type [NONE|KML|TMS|UNIVIEW|GMAP|CELESTIA|GIGAPAN|GIGAPAN_NOPROJ].")
	fileType := defineStringFlag("file-type", "", "png", "Output tile file type [png|jpg|auto]. With 'auto' opaque tiles become jpgs and tiles with transparency become pngs.")
	channelType := defineStringFlag("channel-type", "", "", "Output channel type [UINT8|UINT16|INT16|FLOAT]. Defaults to the input channel type.")
	moduleName := defineStringFlag("module-name", "", "", "The module where the output will be placed. Ex: marsds for Uniview, or Sol/Mars for Celestia.")
	terrain := defineBoolFlag("terrain", "", false, "Outputs image files suitable for a Uniview terrain view (monochrome, 16 bit).")
	jpegQuality := defineFloat64Flag("jpeg-quality", "", 0.75, "JPEG quality factor (0.0 to 1.0).")
	pngCompression := defineIntFlag("png-compression", "", 3, "PNG compression level (0 to 9).")
	tileSize := defineIntFlag("tile-size", "", 256, "Tile size, in pixels.")
	maxLODPixels := defineIntFlag("max-lod-pixels", "", 1024, "Max LoD in pixels, or -1 for none (kml only).")
	drawOrderOffset := defineIntFlag("draw-order-offset", "", 0, "Offset for the drawOrder of the first overlay (kml only).")
	multiband := defineBoolFlag("multiband", "", false, "Composite images using multiband blending instead of simple painting.")
	aspectRatio := defineIntFlag("aspect-ratio", "", 1, "Pixel aspect ratio. The output width is the height divided by this value.")
	globalRes := defineIntFlag("global-resolution", "", 0, "Override the automatically computed global pixel resolution.")

	north := defineFloat64Flag("north", "", 0, "The northernmost latitude of a single input image, in degrees.")
	south := defineFloat64Flag("south", "", 0, "The southernmost latitude of a single input image, in degrees.")
	east := defineFloat64Flag("east", "", 0, "The easternmost longitude of a single input image, in degrees.")
	west := defineFloat64Flag("west", "", 0, "The westernmost longitude of a single input image, in degrees.")
	global := defineBoolFlag("global", "", false, "Assume the input is a global geographic image spanning [-180,180] by [-90,90].")
	projection := defineStringFlag("projection", "", "NONE", "Override the input projection [PLATE_CARREE|MERCATOR|TRANSVERSE_MERCATOR|UTM|SINUSOIDAL|ORTHOGRAPHIC|STEREOGRAPHIC|LAMBERT_AZIMUTHAL|LAMBERT_CONFORMAL_CONIC].")
	utmZone := defineIntFlag("utm-zone", "", 0, "UTM zone, signed: positive means northern hemisphere.")
	projLat := defineFloat64Flag("proj-lat", "", 0, "The center of projection latitude.")
	projLon := defineFloat64Flag("proj-lon", "", 0, "The center of projection longitude.")
	projScale := defineFloat64Flag("proj-scale", "", 1, "The projection scale.")
	p1 := defineFloat64Flag("p1", "", 0, "Standard parallel 1 for the Lambert Conformal Conic projection.")
	p2 := defineFloat64Flag("p2", "", 0, "Standard parallel 2 for the Lambert Conformal Conic projection.")
	nudgeX := defineFloat64Flag("nudge-x", "", 0, "Nudge the image east, in projected coordinates.")
	nudgeY := defineFloat64Flag("nudge-y", "", 0, "Nudge the image north, in projected coordinates.")

	workers := defineIntFlag("jobs", "j", 0, "Number of concurrent tile writers. Defaults to the number of CPUs.")
	silent := defineBoolFlag("silent", "s", false, "Use to suppress all the non-error messages.")
	logTimestamp := defineBoolFlag("timestamp", "t", false, "Adds timestamp to log messages.")

	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return FlagsImage2Qtree{
		OutputName:      outputName,
		Help:            help,
		Version:         version,
		ForceDatum:      forceDatum,
		DatumRadius:     datumRadius,
		PixelScale:      pixelScale,
		PixelOffset:     pixelOffset,
		Normalize:       normalize,
		Nodata:          nodata,
		Mode:            mode,
		FileType:        fileType,
		ChannelType:     channelType,
		ModuleName:      moduleName,
		Terrain:         terrain,
		JpegQuality:     jpegQuality,
		PNGCompression:  pngCompression,
		TileSize:        tileSize,
		MaxLODPixels:    maxLODPixels,
		DrawOrderOffset: drawOrderOffset,
		Multiband:       multiband,
		AspectRatio:     aspectRatio,
		GlobalRes:       globalRes,
		North:           north,
		South:           south,
		East:            east,
		West:            west,
		Global:          global,
		Projection:      projection,
		UTMZone:         utmZone,
		ProjLat:         projLat,
		ProjLon:         projLon,
		ProjScale:       projScale,
		P1:              p1,
		P2:              p2,
		NudgeX:          nudgeX,
		NudgeY:          nudgeY,
		Workers:         workers,
		Silent:          silent,
		LogTimestamp:    logTimestamp,
		Set:             set,
		Inputs:          flag.Args(),
	}
}

func defineStringFlag(name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flag.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlag(name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flag.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64Flag(name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flag.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
