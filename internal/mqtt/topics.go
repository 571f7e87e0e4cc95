package mqtt

import "github.com/tessro/devsup/internal/config"

// Topics builds devsup topic names under Prefix.
//
//	<prefix>/status              online or offline (retained)
//	<prefix>/<key>/<event type>  one message per supervisor event
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return config.DefaultTopicPrefix
	}
	return t.Prefix
}

// Status returns the retained availability topic.
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// Event returns the topic for events of typ from the process named key.
func (t Topics) Event(key, typ string) string {
	return t.prefix() + "/" + key + "/" + typ
}
