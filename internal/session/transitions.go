package session

import (
	"strings"
	"time"

	"github.com/mbd888/botdesk/internal/bots"
	"github.com/mbd888/botdesk/internal/plan"
	"github.com/mbd888/botdesk/internal/quota"
)

// CreateBotRequest describes a new bot. WelcomeMessage and Tone are optional.
type CreateBotRequest struct {
	Name           string     `json:"name"`
	WelcomeMessage *string    `json:"welcomeMessage,omitempty"`
	Tone           *bots.Tone `json:"tone,omitempty"`
}

// CreateBot adds a bot and counts it against the plan in one transition.
// On any error st is returned unchanged.
func CreateBot(st State, req CreateBotRequest, id string, now time.Time) (State, bots.Record, error) {
	if !quota.CanCreateBot(st.Counters) {
		return st, bots.Record{}, quota.Exceeded(st.Counters, quota.ResourceBots)
	}

	reg, rec, err := st.Bots.Create(id, req.Name, now)
	if err != nil {
		return st, bots.Record{}, err
	}
	patch := bots.Patch{WelcomeMessage: req.WelcomeMessage, Tone: req.Tone}
	if !patch.IsEmpty() {
		reg, rec, err = reg.Update(id, patch)
		if err != nil {
			return st, bots.Record{}, err
		}
	}

	next := st
	next.Bots = reg
	next.Counters = quota.RecordBotCreated(st.Counters)
	return next, rec, nil
}

// SwitchBot makes id the active bot.
func SwitchBot(st State, id string) (State, error) {
	reg, err := st.Bots.SwitchActive(id)
	if err != nil {
		return st, err
	}
	next := st
	next.Bots = reg
	return next, nil
}

// UpdateBot applies patch to the bot with the given id.
func UpdateBot(st State, id string, patch bots.Patch) (State, bots.Record, error) {
	reg, rec, err := st.Bots.Update(id, patch)
	if err != nil {
		return st, bots.Record{}, err
	}
	next := st
	next.Bots = reg
	return next, rec, nil
}

// UpdateActiveBot applies patch to the active bot.
func UpdateActiveBot(st State, patch bots.Patch) (State, bots.Record, error) {
	active, ok := st.Bots.Active()
	if !ok {
		return st, bots.Record{}, ErrNoActiveBot
	}
	return UpdateBot(st, active.ID, patch)
}

// DeleteBot removes a bot and releases its slot in the same transition.
func DeleteBot(st State, id string) (State, bots.Record, error) {
	reg, removed, err := st.Bots.Delete(id)
	if err != nil {
		return st, bots.Record{}, err
	}
	next := st
	next.Bots = reg
	next.Counters = quota.RecordBotDeleted(st.Counters)
	return next, removed, nil
}

// SendMessage counts one chat message and returns the active bot's reply.
// When the monthly allowance is spent the state is left untouched.
func SendMessage(st State, text string) (State, Reply, error) {
	if strings.TrimSpace(text) == "" {
		return st, Reply{}, ErrEmptyMessage
	}
	if !quota.CanSendMessage(st.Counters) {
		return st, Reply{}, quota.Exceeded(st.Counters, quota.ResourceMessages)
	}

	reply := replyFor(st, st.Counters.MonthlyMessagesUsed)

	next := st
	next.Counters = quota.RecordMessageSent(st.Counters)
	return next, reply, nil
}

// AddPages counts count trained URL pages against the plan.
func AddPages(st State, count int) (State, error) {
	ok, err := quota.CanAddPages(st.Counters, count)
	if err != nil {
		return st, err
	}
	if !ok {
		return st, quota.Exceeded(st.Counters, quota.ResourcePages)
	}
	next := st
	next.Counters = quota.RecordPagesAdded(st.Counters, count)
	return next, nil
}

// ResetMonthly zeroes the monthly message counter.
func ResetMonthly(st State) State {
	next := st
	next.Counters = quota.ResetMonthly(st.Counters)
	return next
}

// SyncPlan re-binds the session to p. A downgrade keeps existing bots and
// only blocks further creates.
func SyncPlan(st State, p plan.Plan) State {
	next := st
	next.Counters = quota.WithPlan(st.Counters, p)
	return next
}
