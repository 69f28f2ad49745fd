package mqtt

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"modbus-acquisition/internal/config"
	"modbus-acquisition/internal/modbus"
)

// TopicPrefix is where real-time point values are published
const TopicPrefix = "myems/point/"

// payload is the wire shape consumed by real-time subscribers
type payload struct {
	DataSourceID int64        `json:"data_source_id"`
	PointID      int64        `json:"point_id"`
	Value        modbus.Value `json:"value"`
}

// Publisher publishes decoded point values for one data source. One
// instance lives for one sampling loop; the connectivity flag is set and
// cleared by the paho connection callbacks, cleared by Close, and read by
// the worker.
type Publisher struct {
	client       mqtt.Client
	log          *logrus.Entry
	dataSourceID int64
	connected    atomic.Bool
}

// NewPublisher creates a publisher for the given data source. The client
// ID carries the connect time so reconnecting workers never collide.
func NewPublisher(cfg *config.BrokerConfig, dataSourceID int64, log *logrus.Entry) *Publisher {
	p := &Publisher{
		log:          log,
		dataSourceID: dataSourceID,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(fmt.Sprintf("%d-%d", dataSourceID, time.Now().Unix()))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		p.connected.Store(true)
		log.Info("connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		p.connected.Store(false)
		log.WithError(err).Warn("MQTT broker connection lost")
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect starts the client without blocking the worker; paho keeps
// retrying and reconnecting in the background
func (p *Publisher) Connect() {
	p.client.Connect()
}

// Connected reports the last state written by the connection callbacks
func (p *Publisher) Connected() bool {
	return p.connected.Load()
}

// Publish sends one reading to myems/point/<point_id>, QoS 0 with the
// retained flag so late subscribers see the last value. Readings are
// dropped silently while the broker is unreachable; publish failures
// are logged and swallowed.
func (p *Publisher) Publish(pointID int64, value modbus.Value) {
	if !p.connected.Load() {
		return
	}

	body, err := json.Marshal(payload{
		DataSourceID: p.dataSourceID,
		PointID:      pointID,
		Value:        value,
	})
	if err != nil {
		p.log.WithError(err).WithField("point_id", pointID).Error("encode MQTT payload")
		return
	}

	topic := fmt.Sprintf("%s%d", TopicPrefix, pointID)
	token := p.client.Publish(topic, 0, true, body)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.log.WithError(token.Error()).WithField("topic", topic).Warn("MQTT publish failed")
		}
	}()
}

// Close disconnects from the broker and clears the connectivity flag
func (p *Publisher) Close() {
	p.connected.Store(false)
	p.client.Disconnect(250)
}
