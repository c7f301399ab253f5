package flows

import (
	"fmt"
	"time"

	"github.com/m3rciful/loginbot/core/telegram/format"
)

const (
	msgGenericError      = "❌ Xatolik yuz berdi. Iltimos, qaytadan urinib ko'ring."
	msgDecisionError     = "❌ Xatolik yuz berdi."
	msgInvalidLogin      = "Noto'g'ri login so'rovi. Iltimos, qaytadan urinib ko'ring."
	msgUserNotFound      = "❌ Foydalanuvchi topilmadi."
	msgForeignContact    = "❌ Iltimos, o'z telefon raqamingizni yuboring."
	msgAlreadyRegistered = "✅ Siz allaqachon ro'yxatdan o'tgansiz!"
	msgNoSession         = "❌ Iltimos, /start buyrug'ini yuboring."
	msgLoginInactive     = "⌛ Bu login so'rovi endi faol emas."
	msgSlowDown          = "⏳ Iltimos, biroz kuting."
	msgAskFirstName      = "👤 Iltimos, ismingizni kiriting:"
	msgAskLastName       = "📝 Iltimos, familiyangizni kiriting:"
	msgNotRegistered     = "❌ Siz hali ro'yxatdan o'tmagansiz.\n\n📋 Iltimos, avval ro'yxatdan o'ting:"

	btnShareContact = "📱 Telefon raqamni yuborish"
	btnOpenApp      = "🏗️ Ilovani ochish"
	btnOpenAppNew   = "🚀 Ilovani ochish"
	btnApprove      = "✅ Ruxsat berish"
	btnReject       = "❌ Rad etish"

	// AckApproved and AckRejected answer the approve and reject buttons.
	AckApproved = "✅ Tasdiqlandi"
	AckRejected = "❌ Rad etildi"

	timestampLayout = "02.01.2006, 15:04:05"
)

func welcomeNew(appName string) string {
	return "👋 Assalomu alaykum!\n\n" +
		fmt.Sprintf("🏗️ <b>%s</b> botiga xush kelibsiz!\n\n", format.EscapeHTML(appName)) +
		"📋 Ro'yxatdan o'tish uchun telefon raqamingizni yuboring:"
}

func welcomeBack(firstName, appName string) string {
	return fmt.Sprintf("🎉 Salom %s!\n\n", format.EscapeHTML(firstName)) +
		fmt.Sprintf("%s ilovasiga xush kelibsiz!\n\n", format.EscapeHTML(appName)) +
		"📱 Ilovani ochish uchun quyidagi tugmani bosing:"
}

func phoneAccepted(phone string) string {
	return "✅ <b>Telefon raqamingiz qabul qilindi!</b>\n\n" +
		fmt.Sprintf("📱 %s\n\n", format.EscapeHTML(phone)) +
		"👤 Endi ismingizni kiriting:"
}

func askLastName(firstName string) string {
	return fmt.Sprintf("👤 Ism: <b>%s</b>\n\n📝 Endi familiyangizni kiriting:", format.EscapeHTML(firstName))
}

func registered(firstName, lastName, phone, appName string) string {
	return "🎉 <b>Tabriklaymiz!</b>\n\n" +
		"✅ Ro'yxatdan o'tish muvaffaqiyatli yakunlandi!\n\n" +
		fmt.Sprintf("👤 <b>%s</b>\n", format.FullName(firstName, lastName)) +
		fmt.Sprintf("📱 <code>%s</code>\n\n", format.EscapeHTML(phone)) +
		fmt.Sprintf("🏗️ Endi %s ilovasidan foydalanishingiz mumkin!", format.EscapeHTML(appName))
}

func loginPrompt(firstName, appName, baseURL string) string {
	return "🔐 <b>Login so'rovi</b>\n\n" +
		fmt.Sprintf("👤 Salom %s!\n\n", format.EscapeHTML(firstName)) +
		fmt.Sprintf("🌐 %s websaytiga kirishga ruxsat berasizmi?\n\n", format.EscapeHTML(appName)) +
		"⚠️ <i>Faqat ishonchli manbalardan kelgan so'rovlarga ruxsat bering.</i>\n\n" +
		fmt.Sprintf("🔗 Sayt: <code>%s</code>", format.EscapeHTML(baseURL))
}

func approvedText(baseURL string, at time.Time) string {
	return "✅ <b>Login tasdiqlandi!</b>\n\n" +
		"🎉 Websaytda avtomatik tizimga kirasiz.\n\n" +
		fmt.Sprintf("🌐 <code>%s</code>\n\n", format.EscapeHTML(baseURL)) +
		"⏰ " + at.Format(timestampLayout)
}

func rejectedText(at time.Time) string {
	return "❌ <b>Login rad etildi</b>\n\n" +
		"🔒 Xavfsizlik uchun login so'rovi bekor qilindi.\n\n" +
		"⏰ " + at.Format(timestampLayout)
}
