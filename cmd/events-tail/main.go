// Command events-tail follows the stats event topic and prints each
// event, useful for watching refreshes during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"

	"github.com/siege-stats/internal/domain"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Comma-separated Kafka brokers")
	topic := flag.String("topic", "siege-stats-events", "Topic to follow")
	group := flag.String("group", "events-tail", "Consumer group ID")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(*brokers, ","), *group, saramaConfig)
	if err != nil {
		logger.Error("failed to create consumer group", "error", err)
		os.Exit(1)
	}
	defer consumerGroup.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	logger.Info("following stats events", "brokers", *brokers, "topic", *topic)

	handler := &printHandler{logger: logger}
	for {
		if err := consumerGroup.Consume(ctx, []string{*topic}, handler); err != nil {
			if err == sarama.ErrClosedConsumerGroup {
				return
			}
			logger.Error("error from consumer", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

type printHandler struct {
	logger *slog.Logger
}

func (h *printHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *printHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *printHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event domain.StatsEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			h.logger.Warn("failed to unmarshal event",
				"error", err,
				"offset", message.Offset,
				"partition", message.Partition,
			)
			session.MarkMessage(message, "")
			continue
		}

		if event.Stats != nil {
			fmt.Printf("%s %s %s/%s mmr=%d rank=%q kd=%.2f wr=%.1f\n",
				event.Timestamp.Format("15:04:05"),
				event.Type,
				event.Platform,
				event.Username,
				event.Stats.MMR,
				event.Stats.RankName,
				event.Stats.KD,
				event.Stats.WinRate,
			)
		} else {
			fmt.Printf("%s %s %s/%s\n",
				event.Timestamp.Format("15:04:05"),
				event.Type,
				event.Platform,
				event.Username,
			)
		}
		session.MarkMessage(message, "")
	}
	return nil
}
