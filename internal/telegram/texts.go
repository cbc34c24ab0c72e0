package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// UI texts in Spanish
const (
	startText             = "¡Hola! 🌱 Soy tu asistente emocional. Para comenzar, ¿cómo te llamas?"
	alreadyRegisteredText = "Ya estás registrado. Usa /perfil para ver tus datos o simplemente escríbeme para conversar."
	askTimeslotText       = "¿En qué horario sueles estar libre? (mañana / tarde / noche)"
	invalidTimeslotText   = "Por favor escribe 'mañana', 'tarde' o 'noche'."
	askPersonaText        = "Elige la personalidad con la que deseas hablar:"
	invalidPersonaText    = "Por favor elige 'Peter' o 'Wuen'."
	registeredFmt         = "Perfecto, %s! 🤖 Ya estás registrado con la personalidad %s."
	greetingPrompt        = "Hola! Me alegra conocerte. ¿Quieres contarme cómo te sientes hoy?"
	notRegisteredText     = "Aún no estás registrado. Envía /start para registrarte."
	storageErrorText      = "Lo siento, tuve un problema guardando tus datos. Inténtalo de nuevo."
	profileFmt            = "Nombre: %s\nPersonalidad: %s\nHorario: %s\nÚltimo tema: %s\n"
	ayudaText             = "Comandos disponibles:\n" +
		"/start - Registrarte\n" +
		"/perfil - Ver tu perfil\n" +
		"/ayuda - Mostrar esta ayuda\n" +
		"Solo envía mensajes al chat para conversar con tu asistente."
)

// personaKeyboard offers the two persona choices as a one-time reply
// keyboard.
func personaKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Peter"),
			tgbotapi.NewKeyboardButton("Wuen"),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}
