package session

import "github.com/mbd888/botdesk/internal/bots"

// Reply is the simulated bot answer to an accepted chat message.
type Reply struct {
	BotID   string    `json:"botId,omitempty"`
	BotName string    `json:"botName,omitempty"`
	Tone    bots.Tone `json:"tone"`
	Content string    `json:"content"`
}

var toneReplies = map[bots.Tone][]string{
	bots.ToneFriendly: {
		"That's a great question! Let me help you with that.",
		"I'd be happy to assist you with that! Here's what I think...",
		"Thanks for asking! Based on your message, I'd suggest...",
		"Hey there! That's an interesting point. Let me share some thoughts...",
	},
	bots.ToneFormal: {
		"Thank you for your inquiry. I will provide you with the appropriate information.",
		"I acknowledge your request and will respond accordingly.",
		"Based on your message, I can provide the following assistance:",
		"I have received your query and will address it professionally.",
	},
	bots.ToneNeutral: {
		"I understand your request. Here's the information you need:",
		"Based on your question, here's what I can tell you:",
		"I can help you with that. Here's my response:",
		"Your message has been received. Here's the relevant information:",
	},
}

// replyFor picks the n-th canned reply for the active bot's tone, cycling
// through the set. Sessions without an active bot answer in the neutral tone.
func replyFor(st State, n int) Reply {
	tone := bots.ToneNeutral
	var r Reply
	if active, ok := st.Bots.Active(); ok {
		tone = active.Tone
		r.BotID = active.ID
		r.BotName = active.Name
	}
	set, ok := toneReplies[tone]
	if !ok {
		tone = bots.ToneNeutral
		set = toneReplies[tone]
	}
	if n < 0 {
		n = -n
	}
	r.Tone = tone
	r.Content = set[n%len(set)]
	return r
}
