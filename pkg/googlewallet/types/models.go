package types

// ObjectKind is the concrete resource family a template or object belongs
// to on the provider side. The kind is embedded in every object id so the
// patch path can dispatch without probing endpoints.
type ObjectKind string

const (
	KindLoyalty  ObjectKind = "loyalty"
	KindGiftCard ObjectKind = "giftcard"
	KindOffer    ObjectKind = "offer"
	KindGeneric  ObjectKind = "generic"
)

// ClassPath returns the REST path segment for class resources.
func (k ObjectKind) ClassPath() string {
	switch k {
	case KindLoyalty:
		return "loyaltyClass"
	case KindGiftCard:
		return "giftCardClass"
	case KindOffer:
		return "offerClass"
	default:
		return "genericClass"
	}
}

// ObjectPath returns the REST path segment for object resources.
func (k ObjectKind) ObjectPath() string {
	switch k {
	case KindLoyalty:
		return "loyaltyObject"
	case KindGiftCard:
		return "giftCardObject"
	case KindOffer:
		return "offerObject"
	default:
		return "genericObject"
	}
}

// PayloadKey returns the save-link payload key prefix for the kind.
func (k ObjectKind) PayloadKey() string {
	switch k {
	case KindLoyalty:
		return "loyalty"
	case KindGiftCard:
		return "giftCard"
	case KindOffer:
		return "offer"
	default:
		return "generic"
	}
}

// Image is a provider image reference.
type Image struct {
	SourceURI ImageURI `json:"sourceUri"`
}

type ImageURI struct {
	URI string `json:"uri"`
}

// Template is the shared class resource. Passes with identical branding
// reuse one template; the id is a deterministic content hash.
type Template struct {
	ID                 string `json:"id"`
	IssuerName         string `json:"issuerName,omitempty"`
	ProgramName        string `json:"programName,omitempty"`
	HexBackgroundColor string `json:"hexBackgroundColor,omitempty"`
	ProgramLogo        *Image `json:"programLogo,omitempty"`
	ReviewStatus       string `json:"reviewStatus,omitempty"`
}

// WalletObject is the per-holder object resource. Always unique, bound to
// exactly one template.
type WalletObject struct {
	ID            string         `json:"id"`
	ClassID       string         `json:"classId"`
	State         string         `json:"state,omitempty"`
	AccountID     string         `json:"accountId,omitempty"`
	AccountName   string         `json:"accountName,omitempty"`
	LoyaltyPoints *LoyaltyPoints `json:"loyaltyPoints,omitempty"`
	Balance       *BalanceValue  `json:"balance,omitempty"`
	Barcode       *Barcode       `json:"barcode,omitempty"`
	TextModules   []TextModule   `json:"textModulesData,omitempty"`
}

type LoyaltyPoints struct {
	Label   string       `json:"label,omitempty"`
	Balance BalanceValue `json:"balance"`
}

type BalanceValue struct {
	String string `json:"string"`
}

type Barcode struct {
	Type          string `json:"type"`
	Value         string `json:"value"`
	AlternateText string `json:"alternateText,omitempty"`
}

type TextModule struct {
	ID     string `json:"id,omitempty"`
	Header string `json:"header,omitempty"`
	Body   string `json:"body,omitempty"`
}

// TemplateState is the terminal state of a get-or-create pass over a
// template.
type TemplateState string

const (
	TemplateStateExists  TemplateState = "exists"
	TemplateStateCreated TemplateState = "created"
	TemplateStateFailed  TemplateState = "failed"
)

// TemplateResult is the outcome of EnsureTemplate.
type TemplateResult struct {
	Template *Template
	State    TemplateState
}

// LinkArtifacts carries the save URL and its QR renditions. Both the
// original and the shortened URL are retained; Degraded marks a run where
// shortening failed and the QR encodes the long URL instead.
type LinkArtifacts struct {
	OriginalURL   string `json:"originalUrl"`
	ShortURL      string `json:"shortUrl,omitempty"`
	QRCodeURL     string `json:"qrCodeUrl"`
	FallbackQRURL string `json:"fallbackQrUrl"`
	Degraded      bool   `json:"degraded,omitempty"`
}

// PassArtifacts is everything CreatePass produces for one pass record.
type PassArtifacts struct {
	ClassID  string
	ObjectID string
	Link     LinkArtifacts
}
