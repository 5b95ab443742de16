package catalog

import (
	"strings"

	"gorm.io/datatypes"
)

// Metadata schema versions. Early imports wrote enrichment byproducts under
// ad hoc keys ("description", bare tag strings); the current schema keys
// everything explicitly and stamps schemaVersion so readers know the shape.
const MetadataSchemaVersion = 2

const (
	MetaSchemaVersion  = "schemaVersion"
	MetaDescriptionKO  = "description_ko"
	MetaDescriptionEN  = "description_en"
	MetaNoseTags       = "nose_tags"
	MetaPalateTags     = "palate_tags"
	MetaFinishTags     = "finish_tags"
	MetaPairingGuideKO = "pairing_guide_ko"
	MetaPairingGuideEN = "pairing_guide_en"
	MetaTastingNote    = "tasting_note"
)

// MigrateMetadata upgrades a metadata map to the current schema version at
// read time. It never mutates its input.
func MigrateMetadata(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	if version(m) >= MetadataSchemaVersion {
		return m
	}

	out := make(datatypes.JSONMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}

	// v1 stored the Korean description under the bare "description" key.
	if _, ok := out[MetaDescriptionKO]; !ok {
		if desc, ok := out["description"].(string); ok && desc != "" {
			out[MetaDescriptionKO] = desc
		}
	}
	delete(out, "description")

	// Synthesize the hashtag summary from the tag lists when absent.
	if _, ok := out[MetaTastingNote]; !ok {
		tags := append(stringList(out[MetaNoseTags]),
			append(stringList(out[MetaPalateTags]), stringList(out[MetaFinishTags])...)...)
		if len(tags) > 0 {
			out[MetaTastingNote] = strings.Join(tags, ", ")
		}
	}

	out[MetaSchemaVersion] = MetadataSchemaVersion
	return out
}

func version(m datatypes.JSONMap) int {
	switch v := m[MetaSchemaVersion].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
