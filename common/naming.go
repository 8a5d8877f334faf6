package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LXSS_LLLL_PPPRRR_YYYYMMDD_yyyymmdd_CC_TX
// L: Landsat, X: sensor (C: OLI/TIRS, O: OLI, T: TIRS or TM, E: ETM+, M: MSS), SS: satellite
// LLLL: processing level, PPPRRR: WRS path/row, YYYYMMDD: acquisition, yyyymmdd: processing
// CC: collection number, TX: collection category (tier)
var landsatProductID = regexp.MustCompile(`^L([CEOTM])(\d{2})_(L[0-9A-Z]{3})_(\d{3})(\d{3})_(\d{8})_(\d{8})_(\d{2})_(T1|T2|RT)`)

// Info parses a Landsat collection product identifier (e.g. LC08_L1TP_196025_20200501_20200509_02_T1)
func Info(sceneName string) (map[string]string, error) {
	m := landsatProductID.FindStringSubmatch(sceneName)
	if m == nil {
		return nil, fmt.Errorf("invalid Landsat product identifier: %s", sceneName)
	}
	sensorChar, satellite := m[1], m[2]
	collection, err := sensorCollection(sensorChar, satellite)
	if err != nil {
		return nil, fmt.Errorf("Info[%s]: %w", sceneName, err)
	}

	return map[string]string{
		"SCENE":             sceneName,
		"SENSOR":            sceneName[0:4],
		"SENSOR_CHAR":       sensorChar,
		"SATELLITE":         satellite,
		"MISSION_ID":        "L" + satellite,
		"PROCESSING_LEVEL":  m[3],
		"PATH":              m[4],
		"ROW":               m[5],
		"DATE":              m[6],
		"YEAR":              m[6][0:4],
		"MONTH":             m[6][4:6],
		"DAY":               m[6][6:8],
		"PROCESSING_DATE":   m[7],
		"COLLECTION_NUMBER": m[8],
		"TIER":              m[9],
		"COLLECTION":        collection,
	}, nil
}

// sensorCollection returns the name of the sensor family as used by the USGS buckets
func sensorCollection(sensorChar, satellite string) (string, error) {
	sat, err := strconv.Atoi(satellite)
	if err != nil || sat < 1 || sat > 9 {
		return "", fmt.Errorf("unknown Landsat satellite %q", satellite)
	}
	switch {
	case sensorChar == "M":
		return "mss", nil
	case sat >= 8:
		return "oli-tirs", nil
	case sensorChar == "E":
		return "etm", nil
	case sensorChar == "T":
		return "tm", nil
	}
	return "", fmt.Errorf("unknown sensor L%s%s", sensorChar, satellite)
}

// GetDateFromProductId returns the acquisition date of the product
func GetDateFromProductId(sceneName string) (time.Time, error) {
	format, err := Info(sceneName)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", format["DATE"])
}

var sensorCode = regexp.MustCompile(`^L[CEOTM](\d{2})$`)

// SensorPlatform returns the STAC platform of a sensor code (e.g. LC08 => LANDSAT_8)
func SensorPlatform(sensor string) (string, error) {
	m := sensorCode.FindStringSubmatch(strings.ToUpper(sensor))
	if m == nil {
		return "", fmt.Errorf("invalid Landsat sensor %q (expecting LC08, LE07...)", sensor)
	}
	sat, _ := strconv.Atoi(m[1])
	if sat < 1 || sat > 9 {
		return "", fmt.Errorf("invalid Landsat sensor %q: unknown satellite", sensor)
	}
	return fmt.Sprintf("LANDSAT_%d", sat), nil
}

/**
 * FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
 * keys must be one of those returned by Info (SCENE, SENSOR, PATH, ROW, YEAR, ...)
 */
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}
