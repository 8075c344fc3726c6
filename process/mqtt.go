package process

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPool dispatches a batch's tasks to remote workers over MQTT, rather
// than running them in-process. The teacher's go.mod carries this same
// client for its endpoint/mqtt input component; here it is repurposed from
// "receive a triggering message" to "publish runnable work and collect
// worker replies", publishing one message per Task on requestTopic and
// waiting for a same-token reply on replyTopic.
type MQTTPool struct {
	client       mqtt.Client
	requestTopic string
	replyTopic   string
	qos          byte
	timeout      time.Duration
}

// wireTask/wireResult are MQTTPool's JSON wire shapes. A task's Payload is
// its Args encoded with encoding/json (JSON null when they cannot be
// encoded); its Rule and Subject are not sent, and Rule.Func is never
// called by this pool. A reply's Payload is handed back undecoded, as a
// json.RawMessage in Result.Value; this pool is a transport, not a codec.
type wireTask struct {
	Token   int             `json:"token"`
	Payload json.RawMessage `json:"payload"`
}

type wireResult struct {
	Token   int             `json:"token"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Err     string          `json:"err,omitempty"`
}

// NewMQTTPool connects client (already configured with a broker URL via
// mqtt.NewClientOptions) and returns a Pool publishing requests on
// requestTopic and awaiting replies on replyTopic, each bounded by timeout.
func NewMQTTPool(client mqtt.Client, requestTopic, replyTopic string, qos byte, timeout time.Duration) (*MQTTPool, error) {
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("process: mqtt connect: %w", token.Error())
	}
	return &MQTTPool{
		client:       client,
		requestTopic: requestTopic,
		replyTopic:   replyTopic,
		qos:          qos,
		timeout:      timeout,
	}, nil
}

func (p *MQTTPool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	pending := make(map[int]int, len(tasks)) // token -> index
	for i, t := range tasks {
		pending[t.Token] = i
		results[i] = Result{Token: t.Token, Err: fmt.Errorf("process: no reply received")}
	}

	var mu sync.Mutex
	done := make(chan struct{})
	remaining := len(tasks)

	sub := p.client.Subscribe(p.replyTopic, p.qos, func(_ mqtt.Client, msg mqtt.Message) {
		var wr wireResult
		if err := json.Unmarshal(msg.Payload(), &wr); err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		idx, ok := pending[wr.Token]
		if !ok {
			return
		}
		delete(pending, wr.Token)
		if wr.Err != "" {
			results[idx] = Result{Token: wr.Token, Err: fmt.Errorf("%s", wr.Err)}
		} else {
			results[idx] = Result{Token: wr.Token, Value: wr.Payload}
		}
		remaining--
		if remaining == 0 {
			close(done)
		}
	})
	if sub.Wait() && sub.Error() != nil {
		for i := range results {
			results[i].Err = fmt.Errorf("process: mqtt subscribe: %w", sub.Error())
		}
		return results
	}
	defer p.client.Unsubscribe(p.replyTopic)

	for _, task := range tasks {
		payload, err := json.Marshal(wireTask{Token: task.Token, Payload: marshalArgs(task.Args)})
		if err != nil {
			mu.Lock()
			idx := pending[task.Token]
			delete(pending, task.Token)
			mu.Unlock()
			results[idx] = Result{Token: task.Token, Err: err}
			continue
		}
		pub := p.client.Publish(p.requestTopic, p.qos, false, payload)
		pub.Wait()
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	select {
	case <-done:
	case <-ctxTimeout.Done():
	}
	return results
}

func marshalArgs(args []any) json.RawMessage {
	data, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

var _ Pool = (*MQTTPool)(nil)
