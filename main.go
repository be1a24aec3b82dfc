package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/stephenfox/image2qtree/internal/tiler"
	"github.com/stephenfox/image2qtree/pkg"
	"github.com/stephenfox/image2qtree/tools"
)

const VERSION = "1.0.0"

const logo = `
 _                       ___       _
(_)_ __ ___   __ _  __ _  ___|___ \ __ _| |_ _ __ ___  ___
| | '_   _ \ / _  |/ _  |/ _ \ __) / _  | __| '__/ _ \/ _ \
| | | | | | | (_| | (_| |  __// __/ (_| | |_| | |  __/  __/
|_|_| |_| |_|\__,_|\__, |\___|_____\__, |\__|_|  \___|\___|
                   |___/              |_|
        A quadtree tile pyramid generator for geo imagery
`

func main() {
	log.SetPrefix("[image2qtree] ")
	log.SetFlags(log.LUTC | log.Ldate | log.Lmicroseconds | log.Lshortfile)

	flags := tools.ParseFlagsImage2Qtree()

	if *flags.Help {
		showHelp()
		return
	}

	if *flags.Version {
		printVersion()
		return
	}

	// set logging and timestamp logging
	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*flags.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}

	opts := optionsFromFlags(&flags)
	log.Println(tools.FmtJSONString(opts))

	if msg, res := validateOptions(opts, &flags); !res {
		log.Fatal("Error parsing input parameters: " + msg)
	}

	err := pkg.NewTiler().RunTiler(opts)

	if err != nil {
		log.Fatal("Error while tiling: ", err)
	} else {
		tools.LogOutput("Conversion Completed")
	}
}

// Puts the command line flags inside a TilerOptions struct.
func optionsFromFlags(flags *tools.FlagsImage2Qtree) *tiler.TilerOptions {
	opts := &tiler.TilerOptions{
		InputFiles:       tools.NewStandardFileFinder().GetImageFilesToProcess(flags.Inputs),
		OutputName:       *flags.OutputName,
		Mode:             tiler.ParseMode(*flags.Mode),
		FileType:         strings.ToLower(strings.Trim(*flags.FileType, " ")),
		ChannelType:      *flags.ChannelType,
		ModuleName:       *flags.ModuleName,
		Terrain:          *flags.Terrain,
		JpegQuality:      *flags.JpegQuality,
		PNGCompression:   *flags.PNGCompression,
		TileSize:         *flags.TileSize,
		MaxLODPixels:     *flags.MaxLODPixels,
		DrawOrderOffset:  *flags.DrawOrderOffset,
		Multiband:        *flags.Multiband,
		AspectRatio:      *flags.AspectRatio,
		GlobalResolution: *flags.GlobalRes,
		Datum:            tiler.ParseDatumOverride(*flags.ForceDatum),
		DatumRadius:      *flags.DatumRadius,
		PixelScale:       *flags.PixelScale,
		PixelOffset:      *flags.PixelOffset,
		Normalize:        *flags.Normalize,
		Nodata:           *flags.Nodata,
		NodataSet:        flags.Set["nodata"],
		Global:           *flags.Global,
		Projection:       tiler.ParseProjection(*flags.Projection),
		Proj: tiler.ProjSettings{
			Lat:     *flags.ProjLat,
			Lon:     *flags.ProjLon,
			Scale:   *flags.ProjScale,
			P1:      *flags.P1,
			P2:      *flags.P2,
			UTMZone: *flags.UTMZone,
		},
		NudgeX:  *flags.NudgeX,
		NudgeY:  *flags.NudgeY,
		Workers: *flags.Workers,
		Silent:  *flags.Silent,
	}

	if *flags.Global {
		opts.ManualBBox = tiler.ManualBBox{North: 90, South: -90, East: 180, West: -180, Set: true}
	} else if flags.Set["north"] || flags.Set["south"] || flags.Set["east"] || flags.Set["west"] {
		opts.ManualBBox = tiler.ManualBBox{
			North: *flags.North,
			South: *flags.South,
			East:  *flags.East,
			West:  *flags.West,
			Set:   true,
		}
	}

	if opts.OutputName == "" && len(opts.InputFiles) > 0 {
		opts.OutputName = filenameWithoutExtension(opts.InputFiles[0])
	}

	return opts
}

// Checks the combination of options against the constraints of the
// selected output mode.
func validateOptions(opts *tiler.TilerOptions, flags *tools.FlagsImage2Qtree) (string, bool) {
	if len(opts.InputFiles) == 0 {
		return "No input images specified", false
	}
	for _, input := range opts.InputFiles {
		if _, err := os.Stat(input); os.IsNotExist(err) {
			return "Input file " + input + " not found", false
		}
	}

	if opts.Mode == "" {
		return "mode must be one of [NONE|KML|TMS|UNIVIEW|GMAP|CELESTIA|GIGAPAN|GIGAPAN_NOPROJ]", false
	}
	if opts.Datum == "" {
		return "force-datum must be one of [NONE|WGS84|LUNAR|MARS|SPHERE]", false
	}
	if opts.Projection == "" {
		return "unrecognized projection override", false
	}

	if opts.ManualBBox.Set {
		if len(opts.InputFiles) != 1 {
			return "Cannot override the geographic extent with more than one input image", false
		}
		if !*flags.Global {
			for _, edge := range []string{"north", "south", "east", "west"} {
				if !flags.Set[edge] {
					return "The geographic extent override requires all of north, south, east and west", false
				}
			}
		}
		if opts.ManualBBox.North <= opts.ManualBBox.South {
			return "north must be greater than south", false
		}
		if opts.ManualBBox.East <= opts.ManualBBox.West {
			return "east must be greater than west", false
		}
	}

	if opts.Datum == tiler.DatumSphere && opts.DatumRadius <= 0 {
		return "force-datum SPHERE requires a positive datum-radius", false
	}

	switch opts.Mode {
	case tiler.ModeNone, tiler.ModeGigapanNoProj:
		if len(opts.InputFiles) != 1 {
			return "Mode " + opts.Mode.String() + " accepts exactly one input image", false
		}
	case tiler.ModeUniview, tiler.ModeCelestia:
		if opts.ModuleName == "" {
			return "Mode " + opts.Mode.String() + " requires module-name", false
		}
	}

	switch opts.FileType {
	case "png", "jpg", "auto":
	default:
		return "file-type must be png, jpg or auto", false
	}
	if opts.ChannelType != "" && !tiler.ValidChannelType(opts.ChannelType) {
		return "channel-type must be one of [UINT8|UINT16|INT16|FLOAT]", false
	}

	if opts.JpegQuality < 0 || opts.JpegQuality > 1 {
		return "jpeg-quality must be between 0 and 1", false
	}
	if opts.PNGCompression < 0 || opts.PNGCompression > 9 {
		return "png-compression must be between 0 and 9", false
	}
	if opts.TileSize < 1 || opts.TileSize&(opts.TileSize-1) != 0 {
		return "tile-size must be a positive power of two", false
	}
	if opts.AspectRatio < 1 {
		return "aspect-ratio must be a positive integer", false
	}
	if opts.GlobalResolution < 0 || (opts.GlobalResolution > 0 && opts.GlobalResolution&(opts.GlobalResolution-1) != 0) {
		return "global-resolution must be a power of two", false
	}

	return "", true
}

func filenameWithoutExtension(filePath string) string {
	nameWithExt := filepath.Base(filePath)
	extension := filepath.Ext(nameWithExt)
	return nameWithExt[0 : len(nameWithExt)-len(extension)]
}

func printLogo() {
	fmt.Print(logo, "\n")
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("image2qtree is a tool that turns georeferenced images into quadtree tile pyramids for KML, TMS, Uniview, Google Maps, Celestia and Gigapan viewers")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Usage: image2qtree [options] <input images...>")
	fmt.Println("")
	fmt.Println("Command line flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
