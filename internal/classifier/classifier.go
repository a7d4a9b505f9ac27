// Package classifier turns a free-text query into an intent classification.
// Classification is pure and deterministic: no I/O, no error conditions, a
// fully populated result for any input including the empty string.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// QueryType is the six-way intent label.
type QueryType string

const (
	TypeProduct    QueryType = "product"
	TypeRecipe     QueryType = "recipe"
	TypeBlog       QueryType = "blog"
	TypeSupport    QueryType = "support"
	TypeCommercial QueryType = "commercial"
	TypeGeneral    QueryType = "general"
)

// Collection names a retrievable content collection.
type Collection string

const (
	CollectionProducts Collection = "products"
	CollectionRecipes  Collection = "recipes"
	CollectionFAQs     Collection = "faqs"
	CollectionVideos   Collection = "videos"
)

// SpecialFlags are cross-cutting detections that survive independent of the
// winning intent type.
type SpecialFlags struct {
	Accessibility bool `json:"accessibility"`
	Noise         bool `json:"noise"`
	Medical       bool `json:"medical"`
}

// RetrievalPolicy tells the retriever which collections to query and how.
type RetrievalPolicy struct {
	Collections      []Collection `json:"collections"`
	TopK             int          `json:"top_k"`
	MinScore         float64      `json:"min_score"`
	DiversityPenalty float64      `json:"diversity_penalty"`
}

// Classification is immutable once produced and consumed by every later
// pipeline stage.
type Classification struct {
	Type            QueryType       `json:"type"`
	Confidence      float64         `json:"confidence"`
	Keywords        []string        `json:"keywords"`
	SpecialFlags    SpecialFlags    `json:"special_flags"`
	Budget          *float64        `json:"budget,omitempty"`
	RetrievalPolicy RetrievalPolicy `json:"retrieval_policy"`
}

const (
	strongWeight     = 10.0
	supportingWeight = 3.0
	detectorBonus    = 5.0
)

type intentPatterns struct {
	strong     []*regexp.Regexp
	supporting []*regexp.Regexp
}

var intents = map[QueryType]intentPatterns{
	TypeProduct: {
		strong: compileAll(
			`\bvs\.?\b`, `\bversus\b`, `\bcompare\b`, `\bcomparison\b`,
			`which (blender|model|one)`, `\bascent\b`, `\bexplorian\b`,
			`\bpropel\b`, `\bventurist\b`, `\bimmersion\b`, `\b[ae]\d{4}i?\b`,
			`\bx[2-5]\b`, `\be3[12]0\b`,
		),
		supporting: compileAll(
			`\bblender\b`, `\bcontainer\b`, `\bhorsepower\b`, `\bmotor\b`,
			`\bbuy\b`, `\bprice\b`, `\bmodel\b`, `\bseries\b`, `\bwattage\b`,
			`\bbest\b`, `\btamper\b`,
		),
	},
	TypeRecipe: {
		strong: compileAll(
			`\brecipes?\b`, `\bsmoothies?\b`, `how (do i|to) (make|blend)`,
			`\bnut butter\b`, `\bsorbet\b`, `\bhummus\b`,
		),
		supporting: compileAll(
			`\bsoups?\b`, `\bingredients?\b`, `\bblend\b`, `\bfrozen\b`,
			`\bprotein\b`, `\bvegan\b`, `\bgluten.?free\b`, `\bbreakfast\b`,
			`\bdessert\b`, `\bjuice\b`,
		),
	},
	TypeBlog: {
		strong: compileAll(
			`\bguide\b`, `\bbenefits of\b`, `\bwhy (should|does|is)\b`,
			`\blearn about\b`,
		),
		supporting: compileAll(
			`\btips\b`, `\bhealth\b`, `\bnutrition\b`, `\blifestyle\b`,
			`\bwellness\b`, `\bhistory\b`,
		),
	},
	TypeSupport: {
		strong: compileAll(
			`\bnot working\b`, `\bbroken\b`, `\btroubleshoot(ing)?\b`,
			`\bwon'?t (start|turn|blend|spin)\b`, `\berror\b`, `\bleak(s|ing)?\b`,
			`\brepair\b`, `\bwarranty\b`,
		),
		supporting: compileAll(
			`\bfix\b`, `\breplace(ment)?\b`, `\bblade\b`, `\bsmell\b`,
			`\bburning\b`, `\bstuck\b`, `\bmanual\b`, `\bregister\b`,
			`\bclean(ing)?\b`,
		),
	},
	TypeCommercial: {
		strong: compileAll(
			`\bcommercial\b`, `\brestaurant\b`, `\bsmoothie (bar|shop)\b`,
			`\bfood service\b`, `\bbulk order\b`,
		),
		supporting: compileAll(
			`\bcafe\b`, `\bbusiness\b`, `\bhigh.?volume\b`, `\bnsf\b`,
			`\bwholesale\b`, `\bfranchise\b`,
		),
	},
	TypeGeneral: {
		supporting: compileAll(
			`\bvitamix\b`, `\bhelp\b`, `\binfo(rmation)?\b`, `\babout\b`,
		),
	},
}

var (
	accessibilityPatterns = compileAll(
		`\baccessib(le|ility)\b`, `\barthritis\b`, `\bone.?hand(ed)?\b`,
		`\beasy (to use|controls?)\b`, `\bsimple controls?\b`,
		`\bvisually impaired\b`, `\blow vision\b`, `\btremor\b`,
	)
	noisePatterns = compileAll(
		`\bquiet(er|est)?\b`, `\bnois[ey]\b`, `\bnoise\b`, `\bloud\b`,
		`\bdecibels?\b`, `\bdb\b`, `\bsound\b`,
	)
	medicalPatterns = compileAll(
		`\bdysphagia\b`, `\bpureed? diets?\b`, `\bswallow(ing)?\b`,
		`\bmedical\b`, `\bblended diets?\b`, `\bfeeding tube\b`,
		`\bpost.?surgery\b`, `\bdoctor\b`,
	)
	budgetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\s?(\d{2,5})`),
		regexp.MustCompile(`(?:under|below|less than|at most|max(?:imum)?(?: of)?)\s+\$?(\d{2,5})`),
		regexp.MustCompile(`budget\s+(?:of\s+|is\s+)?\$?(\d{2,5})`),
	}
)

// typeOrder fixes the tie-break scan order so classification stays
// deterministic across map iteration.
var typeOrder = []QueryType{TypeProduct, TypeRecipe, TypeBlog, TypeSupport, TypeCommercial, TypeGeneral}

// Classify scores the six intent types by weighted pattern matches and
// returns the winner with a normalized confidence. Ties and empty input
// default to general.
func Classify(query string) Classification {
	q := strings.ToLower(strings.TrimSpace(query))

	flags := SpecialFlags{
		Accessibility: matchesAny(q, accessibilityPatterns),
		Noise:         matchesAny(q, noisePatterns),
		Medical:       matchesAny(q, medicalPatterns),
	}

	if q == "" {
		c := Classification{
			Type:         TypeGeneral,
			Confidence:   0.5,
			Keywords:     []string{},
			SpecialFlags: flags,
		}
		c.RetrievalPolicy = policyFor(c.Type)
		return c
	}

	scores := make(map[QueryType]float64, len(typeOrder))
	for t, pats := range intents {
		var s float64
		for _, p := range pats.strong {
			if p.MatchString(q) {
				s += strongWeight
			}
		}
		for _, p := range pats.supporting {
			if p.MatchString(q) {
				s += supportingWeight
			}
		}
		scores[t] = s
	}

	// Detector bonuses apply to product and support independent of the
	// six-way vote.
	for _, hit := range []bool{flags.Accessibility, flags.Noise, flags.Medical} {
		if hit {
			scores[TypeProduct] += detectorBonus
			scores[TypeSupport] += detectorBonus
		}
	}

	winner := TypeGeneral
	var best, total float64
	for _, t := range typeOrder {
		total += scores[t]
		if scores[t] > best {
			best = scores[t]
			winner = t
		}
	}

	confidence := 0.5
	if total > 0 && best > 0 {
		confidence = best / total
	} else {
		winner = TypeGeneral
	}

	c := Classification{
		Type:         winner,
		Confidence:   confidence,
		Keywords:     extractKeywords(q),
		SpecialFlags: flags,
		Budget:       extractBudget(q),
	}
	c.RetrievalPolicy = policyFor(winner)
	return c
}

func policyFor(t QueryType) RetrievalPolicy {
	p := RetrievalPolicy{TopK: 8, MinScore: 0.55, DiversityPenalty: 0.2}
	switch t {
	case TypeProduct:
		p.Collections = []Collection{CollectionProducts, CollectionFAQs, CollectionVideos}
	case TypeRecipe:
		p.Collections = []Collection{CollectionRecipes, CollectionVideos}
	case TypeBlog:
		p.Collections = []Collection{CollectionRecipes, CollectionProducts}
	case TypeSupport:
		p.Collections = []Collection{CollectionFAQs, CollectionVideos}
		p.TopK = 6
	case TypeCommercial:
		p.Collections = []Collection{CollectionProducts, CollectionFAQs}
	default:
		p.Collections = []Collection{CollectionProducts, CollectionRecipes, CollectionFAQs, CollectionVideos}
		p.TopK = 4
	}
	return p
}

func extractBudget(q string) *float64 {
	for _, p := range budgetPatterns {
		if m := p.FindStringSubmatch(q); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
				return &v
			}
		}
	}
	return nil
}

func matchesAny(q string, pats []*regexp.Regexp) bool {
	for _, p := range pats {
		if p.MatchString(q) {
			return true
		}
	}
	return false
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}
