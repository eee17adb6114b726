package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/UnifiedAI-ONeID/verbatim/internal/locale"
	"github.com/UnifiedAI-ONeID/verbatim/internal/models"
	"github.com/UnifiedAI-ONeID/verbatim/internal/providers/llm"
	"github.com/UnifiedAI-ONeID/verbatim/internal/services"
	"github.com/UnifiedAI-ONeID/verbatim/internal/storage"
)

// AnalysisStream carries user-initiated re-analysis jobs. The live capture
// pipeline runs inline in the recorder controller; this pool only serves
// explicit retries on already-stored audio.
const AnalysisStream = "analysis:stream"

// EnqueueReanalysis pushes one re-analysis job.
func EnqueueReanalysis(ctx context.Context, rdb *redis.Client, ownerID, sessionID, loc string) error {
	return rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: AnalysisStream,
		Values: map[string]any{
			"owner_id":   ownerID,
			"session_id": sessionID,
			"locale":     loc,
			"ts_unix":    strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}

type AnalysisWorkerPool struct {
	Redis      *redis.Client
	Sessions   services.SessionService
	Blobs      storage.BlobStore
	Gateway    llm.Gateway
	NumWorkers int

	Logger *logrus.Logger

	Group          string
	ConsumerPrefix string

	JobTimeout time.Duration
}

func (p *AnalysisWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Sessions == nil || p.Blobs == nil || p.Gateway == nil {
		return errors.New("AnalysisWorkerPool missing dependency: Redis/Sessions/Blobs/Gateway must be set")
	}
	if p.Group == "" {
		p.Group = "analysis-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.JobTimeout <= 0 {
		p.JobTimeout = 2 * time.Minute
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, AnalysisStream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *AnalysisWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{AnalysisStream, ">"},
			Count:    5,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, AnalysisStream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *AnalysisWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	ownerID := getStr("owner_id")
	sessionID := getStr("session_id")
	loc := locale.Normalize(getStr("locale"))
	if ownerID == "" || sessionID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
	})

	jctx, cancel := context.WithTimeout(ctx, p.JobTimeout)
	defer cancel()

	sess, err := p.Sessions.Get(jctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("reanalysis: session vanished")
		return
	}
	if sess.AudioRef == "" {
		log.Warn("reanalysis: session has no stored audio")
		return
	}

	_ = p.Sessions.Update(jctx, sessionID, map[string]any{
		"status": models.SessionProcessing,
		"error":  "",
	})

	audio, err := p.Blobs.Download(jctx, storage.AudioObjectName(ownerID, sessionID))
	if err != nil {
		log.WithError(err).Error("reanalysis: audio download failed")
		_ = p.Sessions.Update(jctx, sessionID, map[string]any{
			"status": models.SessionError,
			"error":  locale.Lookup(loc, locale.KeyAnalysisFailed) + " " + err.Error(),
		})
		return
	}

	res, err := p.Gateway.Analyze(jctx, audio, sess.AudioRef, locale.AnalysisPrompt(loc), loc)
	if err != nil {
		log.WithError(err).Error("reanalysis: gateway failed")
		_ = p.Sessions.Update(jctx, sessionID, map[string]any{
			"status": models.SessionError,
			"error":  locale.Lookup(loc, locale.KeyAnalysisFailed) + " " + err.Error(),
		})
		return
	}

	// keep user renames where the label survived the new pass
	speakers := make(map[string]string, len(res.Speakers))
	for _, label := range res.Speakers {
		if name, ok := sess.Speakers[label]; ok {
			speakers[label] = name
		} else {
			speakers[label] = label
		}
	}

	log.Info("reanalysis complete")
	_ = p.Sessions.Update(jctx, sessionID, map[string]any{
		"status": models.SessionCompleted,
		"results": &models.Results{
			Transcript:  res.Transcript,
			Summary:     res.Summary,
			ActionItems: res.ActionItems,
		},
		"speakers": speakers,
	})
}
