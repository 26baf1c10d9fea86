package applepass

import "walletbridge/internal/models"

// PassDefinition is the pass.json document at the root of a signed
// bundle.
type PassDefinition struct {
	FormatVersion      int         `json:"formatVersion"`
	PassTypeIdentifier string      `json:"passTypeIdentifier"`
	SerialNumber       string      `json:"serialNumber"`
	TeamIdentifier     string      `json:"teamIdentifier"`
	OrganizationName   string      `json:"organizationName"`
	Description        string      `json:"description"`
	LogoText           string      `json:"logoText,omitempty"`
	ForegroundColor    string      `json:"foregroundColor,omitempty"`
	BackgroundColor    string      `json:"backgroundColor,omitempty"`
	LabelColor         string      `json:"labelColor,omitempty"`
	ExpirationDate     string      `json:"expirationDate,omitempty"`
	RelevantDate       string      `json:"relevantDate,omitempty"`
	Barcodes           []PKBarcode `json:"barcodes,omitempty"`

	// Exactly one style key is populated, chosen from the pass type.
	StoreCard    *PassStructure `json:"storeCard,omitempty"`
	Coupon       *PassStructure `json:"coupon,omitempty"`
	EventTicket  *PassStructure `json:"eventTicket,omitempty"`
	BoardingPass *PassStructure `json:"boardingPass,omitempty"`
	Generic      *PassStructure `json:"generic,omitempty"`
}

// PassStructure groups the visible fields of one pass style.
type PassStructure struct {
	HeaderFields    []PassField `json:"headerFields,omitempty"`
	PrimaryFields   []PassField `json:"primaryFields,omitempty"`
	SecondaryFields []PassField `json:"secondaryFields,omitempty"`
	AuxiliaryFields []PassField `json:"auxiliaryFields,omitempty"`
	BackFields      []PassField `json:"backFields,omitempty"`
	TransitType     string      `json:"transitType,omitempty"`
}

type PassField struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

type PKBarcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// SignedBundle is a finished .pkpass archive ready for download.
type SignedBundle struct {
	SerialNumber string
	Data         []byte
	ContentType  string
}

// styleFor maps the semantic pass type onto the bundle's layout style.
func styleFor(passType models.PassType) string {
	switch passType {
	case models.PassTypeLoyalty, models.PassTypeGiftCard:
		return "storeCard"
	case models.PassTypeOffer:
		return "coupon"
	case models.PassTypeEvent:
		return "eventTicket"
	case models.PassTypeBoarding:
		return "boardingPass"
	default:
		return "generic"
	}
}

// barcodeFormatFor translates the stored barcode format into the
// bundle's PKBarcodeFormat identifier. Unknown formats fall back to QR.
func barcodeFormatFor(format string) string {
	switch format {
	case "qr", "QR_CODE":
		return "PKBarcodeFormatQR"
	case "pdf417", "PDF_417":
		return "PKBarcodeFormatPDF417"
	case "aztec", "AZTEC":
		return "PKBarcodeFormatAztec"
	case "code128", "CODE_128":
		return "PKBarcodeFormatCode128"
	default:
		return "PKBarcodeFormatQR"
	}
}
