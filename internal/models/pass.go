package models

import "time"

type PassType string

const (
	PassTypeLoyalty  PassType = "loyalty"
	PassTypeGiftCard PassType = "giftcard"
	PassTypeOffer    PassType = "offer"
	PassTypeEvent    PassType = "event"
	PassTypeBoarding PassType = "boarding"
	PassTypeGeneric  PassType = "generic"
)

type PassStatus string

const (
	PassStatusPending PassStatus = "pending"
	PassStatusActive  PassStatus = "active"
	PassStatusFailed  PassStatus = "failed"
	PassStatusRevoked PassStatus = "revoked"
)

// Barcode describes the single optional barcode rendered on a pass.
type Barcode struct {
	Format  string `json:"format"`
	Value   string `json:"value"`
	AltText string `json:"altText,omitempty"`
}

// PassData is the semantic content of a pass, shared by both providers.
// Provider-specific layout is derived from it, never stored.
type PassData struct {
	Title           string   `json:"title"`
	BrandColor      string   `json:"brandColor,omitempty"`
	Logo            string   `json:"logo,omitempty"`
	Icon            string   `json:"icon,omitempty"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	Strip           string   `json:"strip,omitempty"`
	Background      string   `json:"background,omitempty"`
	PointsBalance   string   `json:"pointsBalance,omitempty"`
	PointsLabel     string   `json:"pointsLabel,omitempty"`
	Tier            string   `json:"tier,omitempty"`
	RewardThreshold string   `json:"rewardThreshold,omitempty"`
	Balance         string   `json:"balance,omitempty"`
	OfferCode       string   `json:"offerCode,omitempty"`
	Description     string   `json:"description,omitempty"`
	Website         string   `json:"website,omitempty"`
	SupportEmail    string   `json:"supportEmail,omitempty"`
	IssueDate       string   `json:"issueDate,omitempty"`
	ExpiryDate      string   `json:"expiryDate,omitempty"`
	Barcode         *Barcode `json:"barcode,omitempty"`
}

// PassRecord is the persisted state of one issued pass. The core reads the
// record, synchronizes both providers and writes back artifact references.
type PassRecord struct {
	ID           string     `json:"id"`
	HolderID     string     `json:"holderId"`
	PassType     PassType   `json:"passType"`
	Data         PassData   `json:"passData"`
	ClassID      string     `json:"classId,omitempty"`
	ObjectID     string     `json:"objectId,omitempty"`
	SerialNumber string     `json:"serialNumber,omitempty"`
	QRCodeURL    string     `json:"qrCodeUrl,omitempty"`
	PassURL      string     `json:"passUrl,omitempty"`
	ApplePassURL string     `json:"applePassUrl,omitempty"`
	DeviceToken  string     `json:"deviceToken,omitempty"`
	Status       PassStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
