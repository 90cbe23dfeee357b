package profile

import "tablemerge/internal/etl"

// urbanWatersHeaders is the output layout of the urban waters project
// registry.
var urbanWatersHeaders = []string{
	"PROJECT_NAME", "PROJECT_NAME_MERGED", "PROJECT_TYPE",
	"PROJECT_TYPE_CODE", "ID", "ORGANIZATIONS",
	"PROJECT_DESCRIPTION", "Address / Location name",
	"LOCATION_LATITUDE", "LOCATION_LONGITUDE", "LOCATION_LINK",
	"UPLOAD_PHOTO", "DOC_LINK", "CONTACT_EMAIL",
	"CONTACT_ORGANIZATION", "CONTACT_PHONE", "CONTACT_WEBSITE",
	"SOCIAL_LINK", "DATA_ENTRY_NAME", "DATA_ENTRY_PHONE",
	"PROJECT_DATE", "END_DATE", "DATE_NOTE",
}

func urbanWatersOverlay() []OverlayEntry {
	return []OverlayEntry{
		{Source: "Name", Dest: "PROJECT_NAME_MERGED"},
		Same("PROJECT_DATE"),
		Same("END_DATE"),
		Same("LOCATION_LATITUDE"),
		Same("LOCATION_LONGITUDE"),
		Same("LOCATION_LINK"),
	}
}

// BuiltIns returns fresh copies of the built-in profiles.
func BuiltIns() []Profile {
	return []Profile{
		{
			Name:         UrbanWaters,
			Description:  "Join project registry rows on ID and write the 23-column urban waters layout",
			PrimaryKey:   "ID",
			SecondaryKey: "ID",
			Overlay:      urbanWatersOverlay(),
			OutputSchema: append([]string(nil), urbanWatersHeaders...),
			BuiltIn:      true,
		},
		{
			Name:         UrbanWatersKeepHeaders,
			Description:  "Same join and overlay as urban_waters, keeping the primary file's header",
			PrimaryKey:   "ID",
			SecondaryKey: "ID",
			Overlay:      urbanWatersOverlay(),
			// Overlay columns the primary header lacks go after it.
			ExtraColumns: etl.ExtraColumnsAppend,
			BuiltIn:      true,
		},
	}
}
