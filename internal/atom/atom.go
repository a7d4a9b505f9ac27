package atom

import (
	"encoding/json"
	"fmt"
)

// Type tags the payload carried by an Atom. Every stage downstream of the
// generator switches on this tag rather than sniffing payload fields.
type Type string

const (
	TypeHeading        Type = "heading"
	TypeParagraph      Type = "paragraph"
	TypeFeatureSet     Type = "feature_set"
	TypeFAQSet         Type = "faq_set"
	TypeProductDetail  Type = "product_detail"
	TypeRecipeDetail   Type = "recipe_detail"
	TypeComparison     Type = "comparison"
	TypeCTA            Type = "cta"
	TypeVideo          Type = "video"
	TypeTips           Type = "tips"
	TypeNutritionFacts Type = "nutrition_facts"
	TypeQuote          Type = "quote"
	TypeStats          Type = "stats"
	TypeSteps          Type = "steps"
	TypeImage          Type = "image"
	TypeAccessorySet   Type = "accessory_set"
	TypeTestimonial    Type = "testimonial"
	TypeSpecTable      Type = "spec_table"
)

// KnownTypes lists every tag the validator accepts, in a stable order.
var KnownTypes = []Type{
	TypeHeading, TypeParagraph, TypeFeatureSet, TypeFAQSet,
	TypeProductDetail, TypeRecipeDetail, TypeComparison, TypeCTA,
	TypeVideo, TypeTips, TypeNutritionFacts, TypeQuote, TypeStats,
	TypeSteps, TypeImage, TypeAccessorySet, TypeTestimonial, TypeSpecTable,
}

// Atom is the unit of truth for all downstream rendering. Atoms are created
// by the generator, repaired in place by the validator and consumed
// read-only by layout selection and rendering.
type Atom struct {
	Type      Type    `json:"type"`
	Priority  int     `json:"priority"`
	ImageHint string  `json:"image_hint,omitempty"`
	Content   Content `json:"content"`
}

// Content holds exactly one payload, selected by the atom's Type. Unused
// members are nil.
type Content struct {
	Heading        *Heading        `json:"-"`
	Paragraph      *Paragraph      `json:"-"`
	FeatureSet     *FeatureSet     `json:"-"`
	FAQSet         *FAQSet         `json:"-"`
	ProductDetail  *ProductDetail  `json:"-"`
	RecipeDetail   *RecipeDetail   `json:"-"`
	Comparison     *Comparison     `json:"-"`
	CTA            *CTA            `json:"-"`
	Video          *Video          `json:"-"`
	Tips           *Tips           `json:"-"`
	NutritionFacts *NutritionFacts `json:"-"`
	Quote          *Quote          `json:"-"`
	Stats          *Stats          `json:"-"`
	Steps          *Steps          `json:"-"`
	Image          *Image          `json:"-"`
	AccessorySet   *AccessorySet   `json:"-"`
	Testimonial    *Testimonial    `json:"-"`
	SpecTable      *SpecTable      `json:"-"`
}

type Heading struct {
	Text  string `json:"text"`
	Level int    `json:"level,omitempty"`
}

type Paragraph struct {
	Text string `json:"text"`
}

type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

type FeatureSet struct {
	Title    string    `json:"title,omitempty"`
	Features []Feature `json:"features"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type FAQSet struct {
	Items []FAQ `json:"items"`
}

type ProductDetail struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Price       float64  `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

type RecipeDetail struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	PrepMinutes int      `json:"prep_minutes,omitempty"`
	Yield       string   `json:"yield,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

type ComparisonProduct struct {
	SKU        string            `json:"sku"`
	Name       string            `json:"name"`
	Price      float64           `json:"price,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type Comparison struct {
	Title    string              `json:"title,omitempty"`
	Products []ComparisonProduct `json:"products"`
}

type CTA struct {
	Text        string `json:"text"`
	ButtonLabel string `json:"button_label,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
}

type Video struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

type Tips struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

type NutritionRow struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type NutritionFacts struct {
	ServingSize string         `json:"serving_size,omitempty"`
	Rows        []NutritionRow `json:"rows"`
}

type Quote struct {
	Text        string `json:"text"`
	Attribution string `json:"attribution,omitempty"`
}

type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Stats struct {
	Items []Stat `json:"items"`
}

type Steps struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

type Image struct {
	Hint string `json:"hint"`
	Alt  string `json:"alt,omitempty"`
	URL  string `json:"url,omitempty"`
}

type Accessory struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Price float64 `json:"price,omitempty"`
}

type AccessorySet struct {
	Items []Accessory `json:"items"`
}

type Testimonial struct {
	Text   string  `json:"text"`
	Author string  `json:"author,omitempty"`
	Rating float64 `json:"rating,omitempty"`
}

type SpecRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type SpecTable struct {
	Rows []SpecRow `json:"rows"`
}

type envelope struct {
	Type      Type            `json:"type"`
	Priority  int             `json:"priority"`
	ImageHint string          `json:"image_hint,omitempty"`
	Content   json.RawMessage `json:"content"`
}

// UnmarshalJSON decodes the envelope first and then the payload selected by
// the type tag. An unknown tag is not an error here; the validator rejects
// it so the caller gets a warning instead of a decode failure.
func (a *Atom) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	a.Type = env.Type
	a.Priority = env.Priority
	a.ImageHint = env.ImageHint
	a.Content = Content{}
	if len(env.Content) == 0 {
		return nil
	}
	dst := a.Content.allocate(env.Type)
	if dst == nil {
		return nil
	}
	// Payload decode failures leave the payload nil; the validator drops
	// the atom with a hard error.
	_ = json.Unmarshal(env.Content, dst)
	a.Content.set(env.Type, dst)
	return nil
}

// MarshalJSON re-wraps the selected payload under "content".
func (a Atom) MarshalJSON() ([]byte, error) {
	payload := a.Content.Payload(a.Type)
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", a.Type, err)
	}
	return json.Marshal(envelope{
		Type:      a.Type,
		Priority:  a.Priority,
		ImageHint: a.ImageHint,
		Content:   raw,
	})
}

// Payload returns the payload pointer for the given tag, or nil when the
// tag is unknown or the payload was never populated.
func (c *Content) Payload(t Type) interface{} {
	switch t {
	case TypeHeading:
		if c.Heading != nil {
			return c.Heading
		}
	case TypeParagraph:
		if c.Paragraph != nil {
			return c.Paragraph
		}
	case TypeFeatureSet:
		if c.FeatureSet != nil {
			return c.FeatureSet
		}
	case TypeFAQSet:
		if c.FAQSet != nil {
			return c.FAQSet
		}
	case TypeProductDetail:
		if c.ProductDetail != nil {
			return c.ProductDetail
		}
	case TypeRecipeDetail:
		if c.RecipeDetail != nil {
			return c.RecipeDetail
		}
	case TypeComparison:
		if c.Comparison != nil {
			return c.Comparison
		}
	case TypeCTA:
		if c.CTA != nil {
			return c.CTA
		}
	case TypeVideo:
		if c.Video != nil {
			return c.Video
		}
	case TypeTips:
		if c.Tips != nil {
			return c.Tips
		}
	case TypeNutritionFacts:
		if c.NutritionFacts != nil {
			return c.NutritionFacts
		}
	case TypeQuote:
		if c.Quote != nil {
			return c.Quote
		}
	case TypeStats:
		if c.Stats != nil {
			return c.Stats
		}
	case TypeSteps:
		if c.Steps != nil {
			return c.Steps
		}
	case TypeImage:
		if c.Image != nil {
			return c.Image
		}
	case TypeAccessorySet:
		if c.AccessorySet != nil {
			return c.AccessorySet
		}
	case TypeTestimonial:
		if c.Testimonial != nil {
			return c.Testimonial
		}
	case TypeSpecTable:
		if c.SpecTable != nil {
			return c.SpecTable
		}
	}
	return nil
}

func (c *Content) allocate(t Type) interface{} {
	switch t {
	case TypeHeading:
		return &Heading{}
	case TypeParagraph:
		return &Paragraph{}
	case TypeFeatureSet:
		return &FeatureSet{}
	case TypeFAQSet:
		return &FAQSet{}
	case TypeProductDetail:
		return &ProductDetail{}
	case TypeRecipeDetail:
		return &RecipeDetail{}
	case TypeComparison:
		return &Comparison{}
	case TypeCTA:
		return &CTA{}
	case TypeVideo:
		return &Video{}
	case TypeTips:
		return &Tips{}
	case TypeNutritionFacts:
		return &NutritionFacts{}
	case TypeQuote:
		return &Quote{}
	case TypeStats:
		return &Stats{}
	case TypeSteps:
		return &Steps{}
	case TypeImage:
		return &Image{}
	case TypeAccessorySet:
		return &AccessorySet{}
	case TypeTestimonial:
		return &Testimonial{}
	case TypeSpecTable:
		return &SpecTable{}
	}
	return nil
}

func (c *Content) set(t Type, payload interface{}) {
	switch t {
	case TypeHeading:
		c.Heading = payload.(*Heading)
	case TypeParagraph:
		c.Paragraph = payload.(*Paragraph)
	case TypeFeatureSet:
		c.FeatureSet = payload.(*FeatureSet)
	case TypeFAQSet:
		c.FAQSet = payload.(*FAQSet)
	case TypeProductDetail:
		c.ProductDetail = payload.(*ProductDetail)
	case TypeRecipeDetail:
		c.RecipeDetail = payload.(*RecipeDetail)
	case TypeComparison:
		c.Comparison = payload.(*Comparison)
	case TypeCTA:
		c.CTA = payload.(*CTA)
	case TypeVideo:
		c.Video = payload.(*Video)
	case TypeTips:
		c.Tips = payload.(*Tips)
	case TypeNutritionFacts:
		c.NutritionFacts = payload.(*NutritionFacts)
	case TypeQuote:
		c.Quote = payload.(*Quote)
	case TypeStats:
		c.Stats = payload.(*Stats)
	case TypeSteps:
		c.Steps = payload.(*Steps)
	case TypeImage:
		c.Image = payload.(*Image)
	case TypeAccessorySet:
		c.AccessorySet = payload.(*AccessorySet)
	case TypeTestimonial:
		c.Testimonial = payload.(*Testimonial)
	case TypeSpecTable:
		c.SpecTable = payload.(*SpecTable)
	}
}

// NewHeading is a convenience constructor used by fallback payloads.
func NewHeading(text string, priority int) Atom {
	return Atom{Type: TypeHeading, Priority: priority, Content: Content{Heading: &Heading{Text: text, Level: 1}}}
}

// NewParagraph is a convenience constructor used by fallback payloads.
func NewParagraph(text string, priority int) Atom {
	return Atom{Type: TypeParagraph, Priority: priority, Content: Content{Paragraph: &Paragraph{Text: text}}}
}
