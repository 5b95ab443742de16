package catalog

import (
	"testing"

	"gorm.io/datatypes"
)

func TestMigrateMetadataUpgradesLegacyDescription(t *testing.T) {
	legacy := datatypes.JSONMap{
		"description": "부드럽고 달콤한 전통주",
		MetaNoseTags:  []interface{}{"honey", "pear"},
	}

	migrated := MigrateMetadata(legacy)

	if migrated[MetaDescriptionKO] != "부드럽고 달콤한 전통주" {
		t.Fatalf("expected legacy description moved to %s, got %v", MetaDescriptionKO, migrated[MetaDescriptionKO])
	}
	if _, ok := migrated["description"]; ok {
		t.Fatal("legacy description key must be dropped")
	}
	if migrated[MetaSchemaVersion] != MetadataSchemaVersion {
		t.Fatalf("expected schema version %d, got %v", MetadataSchemaVersion, migrated[MetaSchemaVersion])
	}
	if migrated[MetaTastingNote] != "honey, pear" {
		t.Fatalf("expected synthesized tasting note, got %v", migrated[MetaTastingNote])
	}

	// Input must be untouched.
	if _, ok := legacy[MetaDescriptionKO]; ok {
		t.Fatal("migration must not mutate its input")
	}
}

func TestMigrateMetadataCurrentVersionPassesThrough(t *testing.T) {
	current := datatypes.JSONMap{
		MetaSchemaVersion: float64(MetadataSchemaVersion),
		MetaDescriptionKO: "설명",
		MetaTastingNote:   "smoke, peat",
	}

	migrated := MigrateMetadata(current)
	if len(migrated) != len(current) {
		t.Fatalf("current-version metadata must pass through unchanged, got %v", migrated)
	}
}

func TestMigrateMetadataNilStaysNil(t *testing.T) {
	if MigrateMetadata(nil) != nil {
		t.Fatal("nil metadata must stay nil")
	}
}

func TestTagListToleratesDecodedShape(t *testing.T) {
	rec := &Record{Metadata: datatypes.JSONMap{
		MetaNoseTags: []interface{}{"vanilla", "oak", 42},
	}}

	tags := rec.TagList(MetaNoseTags)
	if len(tags) != 2 || tags[0] != "vanilla" || tags[1] != "oak" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if rec.TagList(MetaPalateTags) != nil {
		t.Fatal("missing key must yield nil")
	}
}
