package enrich

import (
	"strings"

	"github.com/kspirits/platform/pkg/catalog"
	"gorm.io/datatypes"
)

// InputFromRecord builds the generation request for one catalog record.
func InputFromRecord(rec *catalog.Record) Input {
	in := Input{
		ID:          rec.ID,
		Name:        rec.Name,
		Category:    rec.Category,
		Subcategory: rec.Subcategory,
		Distillery:  rec.Distillery,
		ABV:         rec.ABV,
		Region:      rec.Region,
		Country:     rec.Country,
	}
	if rec.Metadata != nil {
		in.Metadata = map[string]string{}
		if note, ok := rec.Metadata[catalog.MetaTastingNote].(string); ok {
			in.Metadata["tasting_note"] = note
		}
	}
	return in
}

// MergeFields maps a generation result onto store fields: the name_en
// column plus the enrichment byproducts merged into the record's metadata.
// Existing metadata keys not owned by enrichment are preserved;
// last-write-wins for the ones that are.
func MergeFields(rec *catalog.Record, out *Output) map[string]interface{} {
	meta := make(datatypes.JSONMap, len(rec.Metadata)+9)
	for k, v := range rec.Metadata {
		meta[k] = v
	}

	meta[catalog.MetaDescriptionKO] = out.DescriptionKO
	meta[catalog.MetaDescriptionEN] = out.DescriptionEN
	meta[catalog.MetaNoseTags] = out.NoseTags
	meta[catalog.MetaPalateTags] = out.PalateTags
	meta[catalog.MetaFinishTags] = out.FinishTags
	meta[catalog.MetaPairingGuideKO] = out.PairingGuideKO
	meta[catalog.MetaPairingGuideEN] = out.PairingGuideEN
	meta[catalog.MetaSchemaVersion] = catalog.MetadataSchemaVersion

	note := out.TastingNote
	if note == "" {
		note = hashtagSummary(out)
	}
	if note != "" {
		meta[catalog.MetaTastingNote] = note
	}

	return map[string]interface{}{
		"name_en":  out.NameEN,
		"metadata": meta,
	}
}

func hashtagSummary(out *Output) string {
	all := append(append(append([]string{}, out.NoseTags...), out.PalateTags...), out.FinishTags...)
	return strings.Join(all, ", ")
}
