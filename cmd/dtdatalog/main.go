// Command dtdatalog continuously reads every configured channel of a
// Keithley 2700 multimeter and appends the converted readings to a data
// file until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/lsgunth/dtdatalog/pkg/config"
	"github.com/lsgunth/dtdatalog/pkg/datalog"
	"github.com/lsgunth/dtdatalog/pkg/keithley"
	"github.com/lsgunth/dtdatalog/pkg/output"
	"github.com/lsgunth/dtdatalog/pkg/transport"
)

func main() {
	cfgPath := flag.String("config", "dtdatalog.yaml", "path to YAML config file")
	port := flag.String("port", "", "serial port of the instrument (overrides config)")
	prefix := flag.String("prefix", "", "output file name prefix (overrides config)")
	verbose := flag.Bool("verbose", false, "trace instrument commands")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *prefix != "" {
		cfg.Log.Prefix = *prefix
	}

	registry := buildRegistry(cfg.Channels)

	client, err := keithley.Open(cfg.Serial.Port, transport.Options{
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		log.Fatalf("instrument session failed: %v", err)
	}
	defer client.Close()
	client.Debug = *verbose

	src, err := keithley.NewSource(client, registry)
	if err != nil {
		log.Fatalf("channel setup failed: %v", err)
	}

	file, err := datalog.Create(cfg.Log.Dir, cfg.Log.Prefix, cfg.Log.Tag, src.Titles(), metaEntries(cfg.Log.Metadata))
	if err != nil {
		log.Fatalf("could not create data file: %v", err)
	}
	defer file.Close()
	log.Printf("saving data to %s", file.Path())

	outputs, err := buildOutputs(cfg.Outputs, src.Titles())
	if err != nil {
		log.Fatalf("output setup failed: %v", err)
	}
	defer func() {
		for _, out := range outputs {
			out.Close()
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := datalog.New(src, file, outputs...)
	if err := logger.Run(ctx); err != nil {
		log.Fatalf("acquisition failed: %v", err)
	}
}

// buildRegistry maps the YAML channel list onto typed channel descriptors,
// preserving declaration order. Function names are validated by the client
// at registration time.
func buildRegistry(channels []config.ChannelConfig) *keithley.Registry {
	reg := &keithley.Registry{Name: "keithley"}
	for _, cc := range channels {
		ch := keithley.Channel{
			Name: cc.Name,
			ChannelConfig: keithley.ChannelConfig{
				Func:     keithley.Func(cc.Function),
				Channel:  cc.Channel,
				Range:    cc.Range,
				Aperture: cc.Aperture,
			},
		}
		switch ch.Func {
		case keithley.FuncRTD:
			ch.RTD = &keithley.RTDParams{
				Alpha:        cc.Alpha,
				R0:           cc.R0,
				ColdJunction: cc.ColdJunction,
			}
		case keithley.FuncThermocouple:
			ch.Thermocouple = &keithley.ThermocoupleParams{
				SensorType: cc.SensorType,
			}
		}
		reg.Channels = append(reg.Channels, ch)
	}
	return reg
}

// metaEntries converts the config metadata map into ordered header entries.
func metaEntries(meta map[string]string) []datalog.Meta {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]datalog.Meta, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, datalog.Meta{Key: k, Value: meta[k]})
	}
	return entries
}

func buildOutputs(cfg config.OutputsConfig, titles []string) ([]datalog.Output, error) {
	var outputs []datalog.Output

	if cfg.Console {
		outputs = append(outputs, output.NewConsole(os.Stdout, titles))
	}

	if cfg.MQTT.Enabled {
		m, err := output.NewMQTT(output.MQTTConfig{
			Server:   cfg.MQTT.Server,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, titles)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, m)
	}

	return outputs, nil
}
