// Package mqtt publishes safety decisions to an MQTT broker.
//
// The client is publish-only. It maintains a retained availability message
// on safetymonitor/{site}/status (online on connect, offline on Close, and
// offline via Last Will when the process dies) and leaves the decision
// payloads to its caller:
//
//	topics, err := mqtt.NewTopics(cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(topics.State(), decision, true)
//
// Paho reconnects with exponential backoff after a connection loss; publishes
// made while disconnected fail fast with ErrNotConnected.
package mqtt
