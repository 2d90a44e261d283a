package intent

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatchMode selects how a tier's phrases are applied to a message
type MatchMode string

const (
	// MatchExact requires the whole normalized message to be one of the phrases
	MatchExact MatchMode = "exact"
	// MatchContains accepts a phrase anywhere in the message
	MatchContains MatchMode = "contains"
)

// Tier is one priority level of the classifier
type Tier struct {
	Name       string              `yaml:"name"`
	Intent     Intent              `yaml:"intent"`
	Confidence float64             `yaml:"confidence"`
	Mode       MatchMode           `yaml:"mode"`
	Patterns   map[string][]string `yaml:"patterns"` // locale -> regexp phrases

	compiled map[string]*regexp.Regexp
}

// TriggerGroup is a category of escalation trigger phrases
type TriggerGroup struct {
	Category string              `yaml:"category"`
	Patterns map[string][]string `yaml:"patterns"`

	compiled map[string]*regexp.Regexp
}

// PatternSet is the immutable pattern configuration shared by the classifier
// and the trigger detector. Tiers are evaluated in order; within a tier every
// locale in Locales is tried before moving on.
type PatternSet struct {
	Locales  []string       `yaml:"locales"`
	Tiers    []Tier         `yaml:"tiers"`
	Triggers []TriggerGroup `yaml:"triggers"`
}

// LoadPatternSet reads and compiles a YAML pattern file
func LoadPatternSet(path string) (*PatternSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	return ParsePatternSet(data)
}

// ParsePatternSet parses and compiles YAML pattern configuration
func ParsePatternSet(data []byte) (*PatternSet, error) {
	var set PatternSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file: %w", err)
	}
	if err := set.compile(); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *PatternSet) compile() error {
	if len(s.Locales) == 0 {
		return fmt.Errorf("pattern set defines no locales")
	}

	for i := range s.Tiers {
		tier := &s.Tiers[i]
		if tier.Name == "" || tier.Intent == "" {
			return fmt.Errorf("tier %d: name and intent are required", i)
		}
		if tier.Confidence <= 0 || tier.Confidence > 1 {
			return fmt.Errorf("tier %s: confidence %.2f out of range", tier.Name, tier.Confidence)
		}

		compiled, err := compilePhrases(tier.Patterns, tier.Mode)
		if err != nil {
			return fmt.Errorf("tier %s: %w", tier.Name, err)
		}
		tier.compiled = compiled
	}

	for i := range s.Triggers {
		group := &s.Triggers[i]
		compiled, err := compilePhrases(group.Patterns, MatchContains)
		if err != nil {
			return fmt.Errorf("trigger %s: %w", group.Category, err)
		}
		group.compiled = compiled
	}

	return nil
}

func compilePhrases(patterns map[string][]string, mode MatchMode) (map[string]*regexp.Regexp, error) {
	compiled := make(map[string]*regexp.Regexp, len(patterns))
	for locale, phrases := range patterns {
		if len(phrases) == 0 {
			continue
		}
		alternation := "(?:" + strings.Join(phrases, "|") + ")"

		var expr string
		switch mode {
		case MatchExact:
			expr = "(?i)^" + alternation + "$"
		case MatchContains:
			expr = "(?i)" + alternation
		default:
			return nil, fmt.Errorf("unknown match mode %q", mode)
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", locale, err)
		}
		compiled[locale] = re
	}
	return compiled, nil
}

// DefaultPatternSet returns the built-in Indonesian and English tables
func DefaultPatternSet() *PatternSet {
	set := &PatternSet{
		Locales: []string{"id", "en"},
		Tiers: []Tier{
			{
				Name: "request_human", Intent: RequestHuman, Confidence: 0.95, Mode: MatchContains,
				Patterns: map[string][]string{
					"id": {
						`\b(bicara|ngobrol|chat|hubungi|hubungkan|sambungkan|minta|panggil|butuh)\b.{0,30}\b(manusia|orang asli|agen|operator|cs|customer service|petugas)\b`,
						`\b(agen|operator|cs|admin) manusia\b`,
					},
					"en": {
						`\b(talk|speak|chat|connect|transfer)\b.{0,30}\b(human|person|agent|operator|representative|staff)\b`,
						`\b(human|live) (agent|support|operator|person)\b`,
						`\breal person\b`,
					},
				},
			},
			{
				Name: "confirmation_yes", Intent: ConfirmationYes, Confidence: 0.95, Mode: MatchExact,
				Patterns: map[string][]string{
					"id": {`ya+`, `iya+`, `y`, `yup`, `yoi`, `boleh`, `oke`, `ok`, `okey`, `baik`, `betul`, `benar`, `mau`,
						`setuju`, `silakan`, `silahkan`, `lanjut`, `siap`, `(ya|iya) (boleh|mau|silakan|kak|min)`, `(boleh|mau) kak`},
					"en": {`yes`, `yeah`, `yea`, `yep`, `sure`, `okay`, `please`, `please do`, `yes please`, `go ahead`,
						`of course`, `absolutely`, `sounds good`},
				},
			},
			{
				Name: "confirmation_no", Intent: ConfirmationNo, Confidence: 0.95, Mode: MatchExact,
				Patterns: map[string][]string{
					"id": {`tidak`, `tdk`, `nggak`, `ngga`, `gak`, `ga`, `enggak`, `engga`, `gk`, `bukan`, `jangan`, `belum`,
						`(tidak|gak|ga|nggak) (usah|perlu|kak|min)`},
					"en": {`no`, `nope`, `nah`, `no thanks`, `no thank you`, `not now`, `never ?mind`, `not really`},
				},
			},
			{
				Name: "greeting", Intent: GeneralConversation, Confidence: 0.95, Mode: MatchExact,
				Patterns: map[string][]string{
					"id": {`halo+`, `hallo`, `helo`, `hai`, `hay`, `pagi`, `siang`, `sore`, `malam`,
						`selamat (pagi|siang|sore|malam)`, `assalamu ?alaikum`, `permisi`, `(halo|hai|hi|pagi) (kak|min|gan)`},
					"en": {`hello`, `hi`, `hey`, `hiya`, `(hi|hello|hey) there`, `good (morning|afternoon|evening)`, `greetings`},
				},
			},
			{
				Name: "acknowledgment", Intent: GeneralConversation, Confidence: 0.90, Mode: MatchExact,
				Patterns: map[string][]string{
					"id": {`(terima ?kasih|makasih|makasi|trims|tq)( ya| banyak| kak| min| ya kak| banyak ya| atas bantuannya)?`,
						`(mohon )?maaf( ya)?`, `si+p`, `mantap`, `oke sip`, `baiklah`, `oh (begitu|gitu)`, `paham`, `mengerti`},
					"en": {`(thanks|thank you|thx|ty)( so much| a lot| very much)?`, `sorry`, `my bad`, `got it`, `understood`,
						`cool`, `great`, `perfect`, `alright`, `noted`, `i see`},
				},
			},
			{
				Name: "pricing", Intent: PricingNegotiation, Confidence: 0.85, Mode: MatchContains,
				Patterns: map[string][]string{
					"id": {`\b(harga\w*|biaya\w*|tarif|ongkos|diskon|potongan harga|promo|mahal|murah|nego|negosiasi)\b`,
						`\bberapa(an)? (duit|rupiah|rp)\b`},
					"en": {`\b(price|prices|pricing|cost|costs|discount|discounts|cheaper|expensive|quote|fee|fees)\b`,
						`\bhow much\b`, `\bnegotiat\w*`},
				},
			},
			{
				Name: "sensitive_account", Intent: SensitiveAccountAction, Confidence: 0.85, Mode: MatchContains,
				Patterns: map[string][]string{
					"id": {`\b(kata sandi|sandi|password|akun|login|verifikasi|otp|kode verifikasi|keamanan|diretas|dibobol)\b`,
						`\b(hapus|ganti|ubah) (akun|email)\b`},
					"en": {`\b(password|account|log ?in|sign ?in|security|2fa|otp|hacked|verification code)\b`,
						`\btwo[- ]factor\b`, `\bchange (my )?email\b`},
				},
			},
			{
				Name: "troubleshooting", Intent: Troubleshooting, Confidence: 0.80, Mode: MatchContains,
				Patterns: map[string][]string{
					"id": {`\b(error|eror|gagal|rusak|crash|bug|macet|hang|lemot|kendala|masalah)\b`,
						`\b(tidak|gak|ga|nggak|enggak) (bisa|berfungsi|jalan|muncul)\b`},
					"en": {`\b(error|errors|bug|bugs|broken|issue|problem|stuck)\b`, `\bcrash(es|ed|ing)?\b`,
						`\bfail(s|ed|ing|ure)?\b`, `\b(not working|doesn't work|does not work|can't|cannot|won't)\b`,
						`\bfreez(e|es|ing)\b`},
				},
			},
		},
		Triggers: []TriggerGroup{
			{
				Category: "legal",
				Patterns: map[string][]string{
					"id": {`\b(pengacara|polisi|tuntut|menuntut|gugat|gugatan|somasi|jalur hukum|ylki)\b`},
					"en": {`\b(lawyer|attorney|sue|lawsuit|legal action|court)\b`},
				},
			},
			{
				Category: "refund",
				Patterns: map[string][]string{
					"id": {`\b(refund|kembalikan uang|pengembalian dana|balikin uang|ganti rugi)\b`, `\buang (saya )?kembali\b`},
					"en": {`\b(refund|money back|chargeback|reimburse)\b`},
				},
			},
			{
				Category: "anger",
				Patterns: map[string][]string{
					"id": {`\b(marah|kesal|kecewa|jengkel|payah|bodoh|goblok|tolol|penipu|penipuan)\b`},
					"en": {`\b(angry|furious|pissed|terrible|horrible|worst|ridiculous|unacceptable|useless|scam|fraud)\b`},
				},
			},
			{
				Category: "urgency",
				Patterns: map[string][]string{
					"id": {`\b(darurat|mendesak|urgent|secepatnya|sekarang juga)\b`},
					"en": {`\b(urgent|urgently|emergency|asap|immediately)\b`, `\bright now\b`},
				},
			},
		},
	}

	if err := set.compile(); err != nil {
		panic(fmt.Sprintf("intent: invalid built-in patterns: %v", err))
	}
	return set
}
