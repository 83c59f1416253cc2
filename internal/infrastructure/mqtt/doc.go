// Package mqtt provides MQTT client connectivity for boardlink.
//
// This package manages:
//   - Connection to the broker with Last Will and Testament (LWT)
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Connection health monitoring
//
// # Architecture
//
// boardlink multiplexes every peripheral on a board over one broker
// connection. This package is the transport seam: it knows how to speak
// MQTT but nothing about boards, devices, or payload shapes. The relay
// layer above owns connection policy (lazy connect, ordered operations)
// and routing.
//
//	devices ↔ relay ↔ mqtt.Client ↔ MQTT Broker
//
// Automatic reconnection is switched off on purpose. When the connection
// drops the client reports it and stays down; the relay reconnects lazily
// on the next operation that needs the network.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetOnMessage(func(topic string, payload []byte) error {
//	    log.Printf("Received: %s = %s", topic, payload)
//	    return nil
//	})
//
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	client.Subscribe("boardlink/boards/PiOne/commands", 1)
//	client.PublishString("boardlink/boards/PiOne/events", `{"action":"EVENT"}`, 1, false)
package mqtt
