package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
)

type geofenceMessage struct {
	Transition int      `json:"transition"`
	Geofences  []string `json:"geofences"`
	ErrorCode  int      `json:"error_code,omitempty"`
}

const (
	transitionEnter      = 1
	transitionExit       = 2
	geofenceNotAvailable = 1000
)

func main() {
	var (
		broker       string
		deviceID     string
		interval     time.Duration
		fences       []string
		count        int
		notAvailable bool
	)

	cmd := &cobra.Command{
		Use:   "publisher",
		Short: "Simulate a device posting geofence transitions over MQTT",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := validateFlags(fences, interval); err != nil {
				return err
			}

			opts := mqtt.NewClientOptions().
				AddBroker(broker).
				SetClientID("proximity-device-" + deviceID)

			client := mqtt.NewClient(opts)
			if token := client.Connect(); token.Wait() && token.Error() != nil {
				return fmt.Errorf("mqtt connect: %w", token.Error())
			}
			defer client.Disconnect(250)

			topic := fmt.Sprintf("/proximity/device/%s/geofence", deviceID)
			publish := func(msg geofenceMessage) error {
				payload, err := json.Marshal(msg)
				if err != nil {
					return err
				}
				token := client.Publish(topic, 1, false, payload)
				token.Wait()
				if err := token.Error(); err != nil {
					return err
				}
				log.Printf("published to %s: %s", topic, payload)
				return nil
			}

			if notAvailable {
				return publish(geofenceMessage{ErrorCode: geofenceNotAvailable})
			}

			log.Printf("connected to %s, publishing every %s...", broker, interval)

			inside := make(map[string]bool, len(fences))
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for sent := 0; count <= 0 || sent < count; sent++ {
				fence := fences[rand.Intn(len(fences))]
				transition := transitionEnter
				if inside[fence] {
					transition = transitionExit
				}
				inside[fence] = !inside[fence]

				if err := publish(geofenceMessage{Transition: transition, Geofences: []string{fence}}); err != nil {
					return err
				}
				<-ticker.C
			}
			return nil
		},
	}

	defaultBroker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		defaultBroker = v
	}

	cmd.Flags().StringVar(&broker, "broker", defaultBroker, "MQTT broker URL")
	cmd.Flags().StringVar(&deviceID, "device", "D0001", "device id used in the topic")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "delay between transitions")
	cmd.Flags().StringArrayVar(&fences, "fence", nil, "fence id (8 char geohash + 6 digit radius), repeatable")
	cmd.Flags().IntVar(&count, "count", 0, "number of transitions to send (0 = forever)")
	cmd.Flags().BoolVar(&notAvailable, "not-available", false, "send a single geofence-not-available broadcast and exit")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateFlags(fences []string, interval time.Duration) error {
	if len(fences) == 0 {
		return fmt.Errorf("at least one --fence is required")
	}
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", interval)
	}
	return nil
}
