package models

import "gorm.io/datatypes"

// navigationMenuSchema describes SiteSetting.NavigationMenu.
const navigationMenuSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "navMenu": {
      "type": "array",
      "items": {"$ref": "#/definitions/menuItem"}
    }
  },
  "definitions": {
    "menuItem": {
      "type": "object",
      "properties": {
        "id": {"type": "string", "description": "Unique identifier for the menu item."},
        "label": {"type": "string", "description": "Display text for the menu item."},
        "url": {"type": "string", "format": "uri", "description": "URL link for the menu item."},
        "children": {
          "type": "array",
          "items": {"$ref": "#/definitions/menuItem"},
          "description": "Nested menu items under this menu item."
        }
      },
      "required": ["id", "label"],
      "additionalProperties": false
    }
  }
}`

// SiteSetting is the per-tenant site configuration.
type SiteSetting struct {
	CommonModel
	Logo       *string `gorm:"size:500" json:"logo,omitempty" admin:"upload=settings/"`
	Favicon    *string `gorm:"size:500" json:"favicon,omitempty" admin:"upload=settings/"`
	GlobalHead *string `json:"global_head,omitempty"`

	Address             *string `gorm:"size:500" json:"address,omitempty"`
	ContactNumber       *string `gorm:"size:13" json:"contact_number,omitempty"`
	Email               *string `gorm:"size:254" json:"email,omitempty"`
	GST                 *string `gorm:"column:gst;size:15" json:"gst,omitempty"`
	ExtraContactDetails *string `json:"extra_contact_details,omitempty"`

	Facebook  *string `gorm:"size:100" json:"facebook,omitempty"`
	Instagram *string `gorm:"size:100" json:"instagram,omitempty"`
	Twitter   *string `gorm:"size:100" json:"twitter,omitempty"`
	Linkedin  *string `gorm:"size:100" json:"linkedin,omitempty"`

	Vision   *string `json:"vision,omitempty"`
	Mission  *string `json:"mission,omitempty"`
	Values   *string `gorm:"column:values" json:"values,omitempty"`
	Brochure *string `gorm:"size:500" json:"brochure,omitempty" admin:"upload=settings/"`

	NavigationMenu datatypes.JSON `gorm:"type:jsonb" json:"navigation_menu,omitempty"`

	AboutUs            *string `json:"about_us,omitempty"`
	TermsAndConditions *string `json:"terms_and_conditions,omitempty"`
	PrivacyPolicy      *string `json:"privacy_policy,omitempty"`
	ReturnPolicy       *string `json:"return_policy,omitempty"`
	Disclaimer         *string `json:"disclaimer,omitempty"`

	Robots *string `gorm:"size:500" json:"robots,omitempty" admin:"upload=settings/"`
}

func (SiteSetting) TableName() string { return "site_settings" }

func (*SiteSetting) String() string { return "Edit Site Settings" }

func (*SiteSetting) VerboseNamePlural() string { return "Site Setting" }

func (*SiteSetting) AdminMeta() map[string]any {
	return map[string]any{
		"json_fields": map[string]any{
			"navigation_menu": map[string]any{"schema": navigationMenuSchema},
		},
	}
}
