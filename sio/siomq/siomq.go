/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package siomq couples a Player to an MQTT broker.
//
// Samples are published as JSON.  Commands arrive on a control
// topic.
package siomq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/fcurve/sio"
	"github.com/Comcast/fcurve/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Couplings is an sio.Couplings.
type Couplings struct {
	Client mqtt.Client

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	// Topic is where samples go.  It can end with ":QOS".
	Topic string

	// PerCurve appends "/CURVE" to Topic for each sample.
	PerCurve bool

	// Retain asks the broker to keep the last sample of each
	// topic.
	Retain bool

	// ControlTopic is the optional topic for commands.
	ControlTopic string

	// InTimeout bounds how long a command can wait to be
	// handled.
	InTimeout time.Duration

	in  chan string
	out chan []sio.Sample
	wg  sync.WaitGroup
}

var _ sio.Couplings = (*Couplings)(nil)

// NewClientOptions makes options for a broker like
// "tcp://localhost:1883".
func NewClientOptions(broker, clientID, username, password string) *mqtt.ClientOptions {
	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(600 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.Username = username
	opts.Password = password
	opts.CleanSession = true
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	}
	return opts
}

// NewCouplings makes Couplings that publish to the given topic.
func NewCouplings(client mqtt.Client, topic string) *Couplings {
	return &Couplings{
		Client:    client,
		Quiesce:   100,
		Topic:     topic,
		InTimeout: 5 * time.Second,
		in:        make(chan string),
		out:       make(chan []sio.Sample),
	}
}

func (c *Couplings) consume(ctx context.Context, topic string, payload []byte) {
	var cmd string
	if err := json.Unmarshal(payload, &cmd); err != nil {
		cmd = string(payload)
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		util.Logf("siomq: dropping command due to ctx.Done()")
	case c.in <- strings.TrimSpace(cmd):
		util.Logf("siomq: forwarded command %s", payload)
	case <-to.C:
		log.Printf("siomq: dropping command due to stall ('%s','%s')", topic, payload)
	}
}

// Start creates the MQTT session and subscribes to the control
// topic.
func (c *Couplings) Start(ctx context.Context) error {
	util.Logf("siomq: attempting to connect to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	util.Logf("siomq: connected to broker")

	if c.ControlTopic != "" {
		topic, qos := parseTopic(c.ControlTopic)
		handler := func(client mqtt.Client, msg mqtt.Message) {
			c.consume(ctx, msg.Topic(), msg.Payload())
		}
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
		util.Logf("siomq: subscribed to %s (%d)", topic, qos)
	}

	return nil
}

// IO returns the command and sample channels and starts publishing
// samples.
func (c *Couplings) IO(ctx context.Context) (chan string, chan []sio.Sample, error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.outLoop(ctx); err != nil {
			log.Printf("siomq: %v", err)
		}
	}()
	var in chan string
	if c.ControlTopic != "" {
		in = c.in
	}
	return in, c.out, nil
}

// topic returns the topic and QoS for a sample.
func (c *Couplings) topic(s sio.Sample) (string, byte) {
	topic, qos := parseTopic(c.Topic)
	if c.PerCurve {
		topic += "/" + s.Curve
	}
	return topic, qos
}

// outLoop publishes samples until the output channel is closed.
func (c *Couplings) outLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case samples, ok := <-c.out:
			if !ok {
				return nil
			}
			for _, s := range samples {
				js, err := json.Marshal(s)
				if err != nil {
					return err
				}
				topic, qos := c.topic(s)
				token := c.Client.Publish(topic, qos, c.Retain, js)
				token.Wait()
				if err := token.Error(); err != nil {
					return fmt.Errorf("publish error: %w", err)
				}
				util.Logf("siomq: published %s %s", topic, js)
			}
		}
	}
}

// Stop waits for publishing to finish and terminates the MQTT
// session.
func (c *Couplings) Stop(context.Context) error {
	c.wg.Wait()
	util.Logf("siomq: disconnecting")
	c.Client.Disconnect(c.Quiesce)
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.ParseUint(s[i+1:], 10, 8)
	if err != nil || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
