package link

import "strings"

// Placeholders understood by topic templates.
const (
	PlaceholderNamespace = "{namespace}"
	PlaceholderNode      = "{node}"
	PlaceholderChannel   = "{channel}"
)

// TopicTemplates describe the topic layout. Empty fields fall back to
// DefaultTemplates.
type TopicTemplates struct {
	Status   string `json:"status"`
	Sensors  string `json:"sensors"`
	Channel  string `json:"channel"`
	Commands string `json:"commands"`
}

// DefaultTemplates namespaces every topic by node identifier.
func DefaultTemplates() TopicTemplates {
	return TopicTemplates{
		Status:   "{namespace}/{node}/status",
		Sensors:  "{namespace}/{node}/sensors",
		Channel:  "{namespace}/{node}/sensors/{channel}",
		Commands: "{namespace}/{node}/commands",
	}
}

// Topics is the resolved, static topic set of a node.
type Topics struct {
	Status   string
	Sensors  string
	Commands string
	channel  string
}

// NewTopics resolves the templates for one node.
func NewTopics(namespace, nodeID string, tpl TopicTemplates) Topics {
	def := DefaultTemplates()
	if tpl.Status == "" {
		tpl.Status = def.Status
	}
	if tpl.Sensors == "" {
		tpl.Sensors = def.Sensors
	}
	if tpl.Channel == "" {
		tpl.Channel = def.Channel
	}
	if tpl.Commands == "" {
		tpl.Commands = def.Commands
	}
	r := strings.NewReplacer(PlaceholderNamespace, namespace, PlaceholderNode, nodeID)
	return Topics{
		Status:   r.Replace(tpl.Status),
		Sensors:  r.Replace(tpl.Sensors),
		Commands: r.Replace(tpl.Commands),
		channel:  r.Replace(tpl.Channel),
	}
}

// Channel returns the topic of one sensor channel, e.g. "temperature".
func (t Topics) Channel(name string) string {
	return strings.ReplaceAll(t.channel, PlaceholderChannel, name)
}
