package model

// PushRequest is the body a push subscription POSTs to our endpoints.
// Message.Data arrives base64 encoded; encoding/json decodes it into the
// byte slice directly.
type PushRequest struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

type PushMessage struct {
	Data        []byte            `json:"data"`
	Attributes  map[string]string `json:"attributes"`
	MessageID   string            `json:"messageId"`
	PublishTime string            `json:"publishTime"`
}

// CloneAttributes copies the message attributes; handlers mutate the copy
// while building per-document metadata.
func (m PushMessage) CloneAttributes() map[string]string {
	out := make(map[string]string, len(m.Attributes))
	for k, v := range m.Attributes {
		out[k] = v
	}
	return out
}
