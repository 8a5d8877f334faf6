package parameter

import (
	"fmt"
	"sort"
	"strings"
)

// Option of a FORCE LEVEL2 parameter file, with the default value written in the skeleton
type Option struct {
	Name    string
	Default string
}

// Options are the known LEVEL2 options, in the order of the skeleton
var Options = []Option{
	{"FILE_QUEUE", "NULL"},
	{"DIR_LEVEL2", "NULL"},
	{"DIR_LOG", "NULL"},
	{"DIR_TEMP", "NULL"},
	{"FILE_DEM", "NULL"},
	{"DEM_NODATA", "-32767"},
	{"DO_REPROJ", "TRUE"},
	{"DO_TILE", "TRUE"},
	{"FILE_TILE", "NULL"},
	{"TILE_SIZE", "30000"},
	{"BLOCK_SIZE", "3000"},
	{"RESOLUTION_LANDSAT", "30"},
	{"RESOLUTION_SENTINEL2", "10"},
	{"ORIGIN_LON", "-25"},
	{"ORIGIN_LAT", "60"},
	{"PROJECTION", "GLANCE7"},
	{"RESAMPLING", "CC"},
	{"DO_ATMO", "TRUE"},
	{"DO_TOPO", "TRUE"},
	{"DO_BRDF", "TRUE"},
	{"ADJACENCY_EFFECT", "TRUE"},
	{"MULTI_SCATTERING", "TRUE"},
	{"DIR_WVPLUT", "NULL"},
	{"WATER_VAPOR", "NULL"},
	{"DO_AOD", "TRUE"},
	{"DIR_AOD", "NULL"},
	{"MAX_CLOUD_COVER_FRAME", "75"},
	{"MAX_CLOUD_COVER_TILE", "75"},
	{"CLOUD_THRESHOLD", "0.225"},
	{"SHADOW_THRESHOLD", "0.02"},
	{"RES_MERGE", "IMPROPHE"},
	{"DIR_MASTER", "NULL"},
	{"MASTER_NODATA", "-32767"},
	{"IMPULSE_NOISE", "TRUE"},
	{"BUFFER_NODATA", "FALSE"},
	{"TIER", "1"},
	{"NPROC", "32"},
	{"NTHREAD", "2"},
	{"PARALLEL_READS", "FALSE"},
	{"DELAY", "3"},
	{"TIMEOUT_ZIP", "30"},
	{"OUTPUT_FORMAT", "GTiff"},
	{"OUTPUT_DST", "FALSE"},
	{"OUTPUT_AOD", "FALSE"},
	{"OUTPUT_WVP", "FALSE"},
	{"OUTPUT_VZN", "FALSE"},
	{"OUTPUT_HOT", "FALSE"},
	{"OUTPUT_OVV", "FALSE"},
}

var defaults = func() map[string]string {
	d := make(map[string]string, len(Options))
	for _, o := range Options {
		d[o.Name] = o.Default
	}
	return d
}()

// Default returns the default value of the option and whether the option is known
func Default(name string) (string, bool) {
	d, ok := defaults[name]
	return d, ok
}

// Defaults returns a new map of all the options with their default value
func Defaults() map[string]string {
	d := make(map[string]string, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	return d
}

// CheckValues returns an error listing the unknown option names and the invalid values
func CheckValues(values map[string]string) error {
	var unknown, invalid []string
	for name, value := range values {
		if _, ok := defaults[name]; !ok {
			unknown = append(unknown, name)
		} else if value == "" || strings.ContainsAny(value, "\r\n") {
			invalid = append(invalid, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown LEVEL2 options: %s", strings.Join(unknown, ", "))
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return fmt.Errorf("invalid value for LEVEL2 options: %s (must be a non-empty single line)", strings.Join(invalid, ", "))
	}
	return nil
}
