// cmd/notification-service/main.go
package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/service/notification"
)

const (
	serviceName = "notification-service"
	servicePort = 8082
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Infra.Kafka.Brokers,
		GroupID: serviceName,
		Topic:   cfg.App.Kafka.OrderPlacedTopic,
	})
	consumer := notification.NewConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		OnShutdown: func() {
			cancel()
			consumer.Stop()
		},
	})
}
