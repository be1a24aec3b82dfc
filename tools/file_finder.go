package tools

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
)

type FileFinder interface {
	GetImageFilesToProcess(inputs []string) []string
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// GetImageFilesToProcess expands the positional input arguments. A folder
// argument is replaced by the image files it directly contains, in lexical
// order. Plain file arguments pass through untouched.
func (f *StandardFileFinder) GetImageFilesToProcess(inputs []string) []string {
	var files = make([]string, 0, len(inputs))

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil || !info.IsDir() {
			files = append(files, input)
			continue
		}
		files = append(files, f.getImageFilesFromInputFolder(input)...)
	}

	return files
}

func (f *StandardFileFinder) getImageFilesFromInputFolder(folder string) []string {
	var imageFiles = make([]string, 0)

	baseInfo, _ := os.Stat(folder)
	err := filepath.Walk(
		folder,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !os.SameFile(info, baseInfo) {
				return filepath.SkipDir
			}
			switch strings.ToLower(filepath.Ext(info.Name())) {
			case ".tif", ".tiff":
				imageFiles = append(imageFiles, path)
			}
			return nil
		},
	)

	if err != nil {
		glog.Fatal(err)
	}

	sort.Strings(imageFiles)
	return imageFiles
}
