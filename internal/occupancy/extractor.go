package occupancy

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/poolwatch/poolwatch/internal/common"
)

var (
	// The reading sits next to "AKTUALNA LICZBA OSÓB NA BASENIE" as
	// "NN/MM" (current/capacity) or occasionally a bare "NN".
	markerValueRe = regexp.MustCompile(`(?is)AKTUALNA\s+LICZBA\s+OS[ÓO]B\s+NA\s+BASENIE\D*?(\d+)(?:\s*/\s*(\d+))?`)
	markerOnlyRe  = regexp.MustCompile(`(?is)AKTUALNA\s+LICZBA\s+OS[ÓO]B\s+NA\s+BASENIE`)
	ratioRe       = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
)

const (
	// Hard plausibility cap: no pool this site could report holds more.
	maxPlausibleOccupancy = 10000

	// Capacity range considered believable for the last-resort scan.
	plausibleCapacityMin = 50
	plausibleCapacityMax = 200
)

// Extract locates the occupancy reading in a raw page. It is a pure
// function: no I/O, deterministic for the same bytes, so fixture-driven
// tests cover it completely. Any drift in the page markup surfaces as an
// *ExtractError, never as a wrong number.
//
// The returned Sample has a zero Timestamp; the service stamps it from
// its clock at persist time.
func Extract(page []byte) (Sample, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Sample{}, &ExtractError{Kind: ExtractStructureNotFound, Detail: err.Error()}
	}
	text := doc.Text()

	// Primary locator: the value directly following the marker phrase.
	if m := markerValueRe.FindStringSubmatch(text); m != nil {
		return buildSample(m[1], m[2])
	}

	// Fallback: a bold "NN/MM" near the marker words. The site has moved
	// the value between <b> and <strong> before.
	var bold []string
	doc.Find("b,strong").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		m := ratioRe.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		parent := strings.ToUpper(sel.Parent().Text())
		if common.HasAny(parent, "AKTUALNA", "BASENIE") {
			bold = m
			return false
		}
		return true
	})
	if bold != nil {
		return buildSample(bold[1], bold[2])
	}

	// Last resort: any NN/MM pair whose capacity looks like a pool's.
	for _, m := range ratioRe.FindAllStringSubmatch(text, -1) {
		capVal, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if capVal >= plausibleCapacityMin && capVal <= plausibleCapacityMax {
			return buildSample(m[1], m[2])
		}
	}

	if markerOnlyRe.MatchString(text) {
		return Sample{}, &ExtractError{
			Kind:   ExtractNonNumericValue,
			Detail: "occupancy marker present but no numeric reading follows",
		}
	}
	return Sample{}, &ExtractError{
		Kind:   ExtractStructureNotFound,
		Detail: "occupancy marker not found in page",
	}
}

// buildSample normalizes and validates the matched digit groups.
// capStr may be empty when the page omits the capacity.
func buildSample(occStr, capStr string) (Sample, error) {
	occ, err := parseCount(occStr)
	if err != nil {
		return Sample{}, err
	}

	sample := Sample{Occupancy: occ, RawStatus: occStr}
	if capStr != "" {
		capVal, err := parseCount(capStr)
		if err != nil {
			return Sample{}, err
		}
		sample.Capacity = &capVal
		sample.RawStatus = occStr + "/" + capStr
	}

	if occ > maxPlausibleOccupancy {
		return Sample{}, &ExtractError{Kind: ExtractOutOfRange, Detail: sample.RawStatus}
	}
	if sample.Capacity != nil && *sample.Capacity > 0 && occ > *sample.Capacity {
		return Sample{}, &ExtractError{Kind: ExtractOutOfRange, Detail: sample.RawStatus}
	}
	return sample, nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &ExtractError{Kind: ExtractOutOfRange, Detail: s}
		}
		return 0, &ExtractError{Kind: ExtractNonNumericValue, Detail: s}
	}
	if n < 0 {
		return 0, &ExtractError{Kind: ExtractOutOfRange, Detail: s}
	}
	return n, nil
}
