package ingest

import (
	"regexp"
	"strings"

	"github.com/tidegate/vectorpipe/internal/model"
)

// Kind is the shape of an ingestion message after resolution.
type Kind int

const (
	KindObjectPath Kind = iota
	KindDriveURL
	KindGitURL
	KindHTTPURL
	KindInline
)

// Event is a resolved ingestion message: storage notifications are rewritten
// to object URIs and may override the namespace.
type Event struct {
	Kind       Kind
	Data       string
	Namespace  string
	Attributes map[string]string
}

var urlRe = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

func containsURL(s string) bool {
	return urlRe.MatchString(s)
}

func extractURLs(s string) []string {
	return urlRe.FindAllString(s, -1)
}

// Resolve turns a raw push message into an Event. It returns ok=false when
// the message should be acknowledged without processing.
func Resolve(namespace string, msg model.PushMessage) (Event, bool) {
	data := string(msg.Data)
	attrs := msg.CloneAttributes()
	if attrs == nil {
		attrs = map[string]string{}
	}

	// storage notification: rewrite to the object URI and let the object's
	// top-level directory take over the namespace
	if attrs["eventType"] == "OBJECT_FINALIZE" && attrs["payloadFormat"] == "JSON_API_V1" {
		objectID := attrs["objectId"]
		if strings.HasPrefix(objectID, "config") {
			return Event{}, false
		}
		data = "gs://" + attrs["bucketId"] + "/" + objectID
		if idx := strings.Index(objectID, "/"); idx > 0 {
			if dir := objectID[:idx]; dir != namespace {
				namespace = dir
			}
		}
		attrs["attrs"] = "namespace:" + namespace
	}

	ev := Event{Data: data, Namespace: namespace, Attributes: attrs}
	switch {
	case strings.HasPrefix(data, "gs://") || strings.HasPrefix(data, "s3://"):
		ev.Kind = KindObjectPath
	case strings.HasPrefix(data, "https://drive.google.com") || strings.HasPrefix(data, "https://docs.google.com"):
		ev.Kind = KindDriveURL
	case strings.HasPrefix(data, "https://github.com"):
		ev.Kind = KindGitURL
	case strings.HasPrefix(data, "http"):
		ev.Kind = KindHTTPURL
	default:
		ev.Kind = KindInline
	}
	return ev, true
}

// objectParts splits gs://bucket/key or s3://bucket/key.
func objectParts(uri string) (bucket, object string, ok bool) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(uri, "gs://"), "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
