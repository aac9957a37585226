package messaging

import "github.com/segmentio/kafka-go"

// MessageCarrier adapts Kafka record headers to a propagation.TextMapCarrier and owns
// the event-type header. Header keys are unique per record.
type MessageCarrier struct {
	msg *kafka.Message
}

func NewMessageCarrier(msg *kafka.Message) *MessageCarrier {
	return &MessageCarrier{msg: msg}
}

func (c *MessageCarrier) index(key string) int {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			return i
		}
	}
	return -1
}

func (c *MessageCarrier) Get(key string) string {
	if i := c.index(key); i >= 0 {
		return string(c.msg.Headers[i].Value)
	}
	return ""
}

func (c *MessageCarrier) Set(key, value string) {
	if i := c.index(key); i >= 0 {
		c.msg.Headers[i].Value = []byte(value)
		return
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Keys lists the propagation headers only; event-type is ours, not the propagator's.
func (c *MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		if h.Key == headerEventType {
			continue
		}
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *MessageCarrier) EventType() string {
	return c.Get(headerEventType)
}

// SetEventType tags the record. An empty type leaves the headers untouched.
func (c *MessageCarrier) SetEventType(typ string) {
	if typ == "" {
		return
	}
	c.Set(headerEventType, typ)
}
