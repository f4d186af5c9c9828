package repository

import (
	"context"

	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/domain/repository"
	pkgkafka "SectorPulse/pkg/kafka"
)

// Message types carried in the envelope.
const (
	ReportTypeSector   = "sector_report"
	ReportTypeScreener = "screener_report"
)

// ReportEnvelope wraps a report for the sink.
type ReportEnvelope struct {
	Type   string      `json:"type"`
	RunID  string      `json:"run_id"`
	Report interface{} `json:"report"`
}

// KafkaReportPublisher implements ReportPublisher on a Kafka topic, keyed
// by run id.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) PublishSectorReport(ctx context.Context, r *models.SectorReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.RunID), ReportEnvelope{Type: ReportTypeSector, RunID: r.RunID, Report: r})
}

func (p *KafkaReportPublisher) PublishScreenerReport(ctx context.Context, r *models.ScreenerReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.RunID), ReportEnvelope{Type: ReportTypeScreener, RunID: r.RunID, Report: r})
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopReportPublisher drops reports; used when no sink is configured.
type NopReportPublisher struct{}

func (NopReportPublisher) PublishSectorReport(context.Context, *models.SectorReport) error {
	return nil
}

func (NopReportPublisher) PublishScreenerReport(context.Context, *models.ScreenerReport) error {
	return nil
}

func (NopReportPublisher) Close() error { return nil }

var (
	_ repository.ReportPublisher = (*KafkaReportPublisher)(nil)
	_ repository.ReportPublisher = NopReportPublisher{}
	_ repository.SeriesSource    = (*Warehouse)(nil)
)
