package buildsys

import (
	"encoding/xml"
	"os"
	"sort"
	"strings"
)

// MSBuildFile is the subset of an MSBuild project file the strategies
// inspect.
type MSBuildFile struct {
	XMLName      xml.Name `xml:"Project"`
	Sdk          string   `xml:"Sdk,attr"`
	ToolsVersion string   `xml:"ToolsVersion,attr"`
	SdkElems     []struct {
		Name string `xml:"Name,attr"`
	} `xml:"Sdk"`
	PropertyGroups []struct {
		AndroidApplication string `xml:"AndroidApplication"`
		TargetFramework    string `xml:"TargetFramework"`
		TargetFrameworks   string `xml:"TargetFrameworks"`
		OutputType         string `xml:"OutputType"`
	} `xml:"PropertyGroup"`
	Imports []struct {
		Project string `xml:"Project,attr"`
	} `xml:"Import"`
}

// ParseMSBuild reads an MSBuild project file.
func ParseMSBuild(path string) (*MSBuildFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f MSBuildFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// IsSDK reports whether the project uses the SDK-style format.
func (f *MSBuildFile) IsSDK() bool {
	return f.Sdk != "" || len(f.SdkElems) > 0
}

// IsAndroid reports whether the project produces an Android package.
func (f *MSBuildFile) IsAndroid() bool {
	for _, pg := range f.PropertyGroups {
		if strings.EqualFold(strings.TrimSpace(pg.AndroidApplication), "true") {
			return true
		}
		if strings.Contains(pg.TargetFramework+";"+pg.TargetFrameworks, "-android") {
			return true
		}
	}
	for _, imp := range f.Imports {
		if strings.Contains(imp.Project, "Xamarin.Android") {
			return true
		}
	}
	return false
}

// PropertyArgs renders props as prefix+key=value, sorted by key.
func PropertyArgs(prefix string, props map[string]string) []string {
	if len(props) == 0 {
		return nil
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, prefix+k+"="+props[k])
	}
	return args
}
