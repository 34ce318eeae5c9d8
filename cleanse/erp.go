package cleanse

import (
	"strings"
	"time"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// DemographicKey turns an ERP demographic id ("NASAW00011000") into the CRM
// customer key ("AW00011000").
func DemographicKey(cid *string) string {
	return strings.TrimPrefix(trimmed(cid), "NAS")
}

// LocationKey turns an ERP location id ("AW-00011000") into the CRM customer
// key ("AW00011000").
func LocationKey(cid *string) string {
	return strings.ReplaceAll(trimmed(cid), "-", "")
}

// Demographics cleanses ERP demographics. Birth dates after processedAt are
// cleared. The first row of each customer key is kept.
func Demographics(raw []schema.ERPDemographicRaw, processedAt time.Time) []schema.ERPDemographic {
	out := make([]schema.ERPDemographic, 0, len(raw))
	for _, r := range raw {
		cid := DemographicKey(r.CID)
		if cid == "" {
			continue
		}
		birth := r.BirthDate
		if birth != nil && birth.After(processedAt) {
			birth = nil
		}
		out = append(out, schema.ERPDemographic{
			CID:         cid,
			BirthDate:   birth,
			Gender:      Gender(r.Gender),
			ProcessedAt: processedAt,
		})
	}
	return firstPerKey(out, func(d schema.ERPDemographic) string { return d.CID })
}

// Locations cleanses ERP locations, keeping the first row of each key.
func Locations(raw []schema.ERPLocationRaw, processedAt time.Time) []schema.ERPLocation {
	countries := newCountryNormalizer()

	out := make([]schema.ERPLocation, 0, len(raw))
	for _, r := range raw {
		cid := LocationKey(r.CID)
		if cid == "" {
			continue
		}
		out = append(out, schema.ERPLocation{
			CID:         cid,
			Country:     countries.Normalize(r.Country),
			ProcessedAt: processedAt,
		})
	}
	return firstPerKey(out, func(l schema.ERPLocation) string { return l.CID })
}

// Categories trims ERP categories, keeping the first row of each id.
func Categories(raw []schema.ERPCategoryRaw, processedAt time.Time) []schema.ERPCategory {
	out := make([]schema.ERPCategory, 0, len(raw))
	for _, r := range raw {
		id := trimmed(r.ID)
		if id == "" {
			continue
		}
		out = append(out, schema.ERPCategory{
			ID:          id,
			Category:    trimmed(r.Category),
			Subcategory: trimmed(r.Subcategory),
			Maintenance: trimmed(r.Maintenance),
			ProcessedAt: processedAt,
		})
	}
	return firstPerKey(out, func(c schema.ERPCategory) string { return c.ID })
}
