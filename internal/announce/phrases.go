package announce

import "golang.org/x/text/language"

// Message keys. Values are fmt verbs understood by message.Printer.
const (
	keyJoined        = "joined"
	keyAlreadyMember = "already_member"
	keyLeft          = "left"
	keyLeftHandover  = "left_handover"
	keyNotMember     = "not_member"
	keyEmptyQueue    = "empty_queue"
	keyNotYourTurn   = "not_your_turn"
	keyBound         = "bound"
	keyQueueEmpty    = "queue_empty"
	keyCurrent       = "current"
)

type phrasebook struct {
	messages map[string]string
	// handover lines take (incoming, emoji, outgoing).
	handover []string
	greeting []string
}

var phrasebooks = map[language.Tag]phrasebook{
	language.English: {
		messages: map[string]string{
			keyJoined:        "✅ You joined the %s.",
			keyAlreadyMember: "You are already in the %s.",
			keyLeft:          "👋 You left the %s.",
			keyLeftHandover:  "👋 You left the %s. ➡️ %s, it is your turn now.",
			keyNotMember:     "You are not in the %s.",
			keyEmptyQueue:    "The queue is empty.",
			keyNotYourTurn:   "Not your turn! It is %s's turn.",
			keyBound:         "Listing bound.",
			keyQueueEmpty:    "— queue is empty.",
			keyCurrent:       "← current",
		},
		handover: []string{
			"➡️ %s, it is your turn for %s now. Thanks, %s!",
			"🔁 %s takes over %s. %s is done.",
			"🙌 %s, you are up for %s. %s handed it over.",
		},
		greeting: []string{
			"🌞 Good morning! May this week be easy and productive.",
			"💪 Happy Monday! New goals, new wins!",
			"🚀 Have a great start to the week and a cheerful mood!",
			"☕ Good morning! Let the coffee energize and the ideas inspire.",
			"📅 Have a great start to the week! May it bring only good news.",
			"🌿 A calm and confident Monday to you, may everything go to plan.",
			"✨ A new week brings new opportunities. Smile and go!",
		},
	},
	language.Russian: {
		messages: map[string]string{
			keyJoined:        "✅ Вы добавлены: %s.",
			keyAlreadyMember: "Вы уже в очереди: %s.",
			keyLeft:          "👋 Вы вышли из очереди: %s.",
			keyLeftHandover:  "👋 Вы вышли из очереди: %s. ➡️ %s, теперь ваша очередь.",
			keyNotMember:     "Вас нет в очереди: %s.",
			keyEmptyQueue:    "Очередь пуста.",
			keyNotYourTurn:   "Сейчас не ваша очередь! Сейчас очередь: %s.",
			keyBound:         "Сообщение привязано.",
			keyQueueEmpty:    "— очередь пуста.",
			keyCurrent:       "→ сейчас",
		},
		handover: []string{
			"➡️ %s, теперь ваша очередь на %s. Спасибо, %s!",
			"🔁 %s принимает эстафету %s. %s молодец.",
			"🙌 %s, ваша очередь %s. %s передал(а) ход.",
		},
		greeting: []string{
			"🌞 Доброе утро! Пусть эта неделя будет лёгкой и продуктивной.",
			"💪 С понедельником! Новые цели — новые победы!",
			"🚀 Удачного старта недели и бодрого настроения!",
			"☕ Доброе утро! Пусть кофе бодрит, а идеи вдохновляют.",
			"📅 Отличного начала недели! Пусть она принесёт только хорошие новости.",
			"🌿 Спокойного и уверенного понедельника, пусть всё идёт по плану.",
			"✨ Новая неделя — новые возможности. Улыбнись и вперёд!",
		},
	},
}
