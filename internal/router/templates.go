package router

import "supportdesk/internal/utils"

// Template names
const (
	TemplateEscalation          = "escalation"
	TemplateHumanRequest        = "human_request"
	TemplateAnythingElse        = "anything_else"
	TemplateGreeting            = "greeting"
	TemplateAcknowledgment      = "acknowledgment"
	TemplateClarify             = "clarify"
	TemplateLastResort          = "last_resort"
	TemplateTroubleshooting     = "troubleshooting"
	TemplatePricing             = "pricing"
	TemplateSensitiveEscalation = "sensitive_escalation"
	TemplateGenericAck          = "generic_ack"
)

// Templates maps locale to template name to reply text
type Templates map[string]map[string]string

// DefaultTemplates returns the Indonesian and English replies
func DefaultTemplates() Templates {
	return Templates{
		utils.LangIndonesian: {
			TemplateEscalation:          "Terima kasih atas kesabarannya. Percakapan ini sudah saya teruskan ke tim support kami, dan seorang agen akan segera membalas di sini.",
			TemplateHumanRequest:        "Baik, saya hubungkan Anda dengan agen kami. Mohon tunggu sebentar, balasan akan muncul di percakapan ini.",
			TemplateAnythingElse:        "Baik. Ada lagi yang bisa saya bantu?",
			TemplateGreeting:            "Halo! Ada yang bisa saya bantu hari ini?",
			TemplateAcknowledgment:      "Sama-sama! Kabari saya jika ada pertanyaan lain.",
			TemplateClarify:             "Maaf, saya kurang menangkap maksud Anda. Bisa dijelaskan sedikit lebih spesifik?",
			TemplateLastResort:          "Maaf, saya belum menemukan jawaban untuk itu. Bisa ceritakan lebih detail? Atau apakah Anda mau saya eskalasikan ke tim support kami?",
			TemplateTroubleshooting:     "Mari kita coba beberapa langkah: tutup lalu buka kembali aplikasinya, pastikan Anda memakai versi terbaru, lalu coba lagi. Kabari saya hasilnya ya.",
			TemplatePricing:             "Untuk pertanyaan harga dan penawaran khusus, agen kami akan membantu langsung. Percakapan ini sudah saya teruskan ke mereka.",
			TemplateSensitiveEscalation: "Demi keamanan akun Anda, permintaan ini perlu ditangani langsung oleh agen kami. Percakapan ini sudah saya teruskan ke mereka.",
			TemplateGenericAck:          "Baik! Ada lagi yang bisa saya bantu?",
		},
		utils.LangEnglish: {
			TemplateEscalation:          "Thanks for your patience. I've passed this conversation to our support team and an agent will reply here shortly.",
			TemplateHumanRequest:        "Sure, I'm connecting you with one of our agents. Please hold on, their reply will appear in this conversation.",
			TemplateAnythingElse:        "Alright. Is there anything else I can help you with?",
			TemplateGreeting:            "Hi there! How can I help you today?",
			TemplateAcknowledgment:      "You're welcome! Let me know if you have any other questions.",
			TemplateClarify:             "Sorry, I didn't quite get that. Could you clarify what you're looking for?",
			TemplateLastResort:          "Sorry, I couldn't find an answer to that yet. Could you tell me more about it? Or would you like me to escalate this to our support team?",
			TemplateTroubleshooting:     "Let's try a few steps: close and reopen the app, make sure you're on the latest version, then try again. Let me know how it goes.",
			TemplatePricing:             "Pricing questions and special offers are handled by our agents directly. I've passed this conversation on to them.",
			TemplateSensitiveEscalation: "To keep your account safe, this request has to be handled by one of our agents. I've passed this conversation on to them.",
			TemplateGenericAck:          "Got it! Is there anything else I can help you with?",
		},
	}
}

// Render returns the template for locale, falling back to fallbackLocale
func (t Templates) Render(locale, fallbackLocale, name string) string {
	if byName, ok := t[locale]; ok {
		if text, ok := byName[name]; ok {
			return text
		}
	}
	return t[fallbackLocale][name]
}
