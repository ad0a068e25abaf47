package service

import (
	"context"
	"errors"
	"time"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RunOptions 单次同步选项
type RunOptions struct {
	DryRun bool // 只做查找与分类，不创建实体、不提交比赛记录
}

type SyncService struct {
	store      interfaces.TableStore
	runs       interfaces.RunRepository // 可为 nil：不记录同步历史
	cfg        *config.Config
	logger     *logrus.Logger
	normalizer *Normalizer
}

func NewSyncService(store interfaces.TableStore, runs interfaces.RunRepository, cfg *config.Config, logger *logrus.Logger) *SyncService {
	return &SyncService{
		store:      store,
		runs:       runs,
		cfg:        cfg,
		logger:     logger,
		normalizer: NewNormalizer(&cfg.Sync),
	}
}

type rowKind int

const (
	rowSkipped rowKind = iota
	rowFailed
	rowCreate
	rowUpdate
)

type rowOutcome struct {
	kind  rowKind
	write model.PendingWrite
	err   *RowError
}

// Run 执行一次完整同步。行级、批次级错误汇总进报告；只有致命错误会返回 error，
// 此时报告中仍包含中止前已完成的部分。
func (s *SyncService) Run(ctx context.Context, src interfaces.RowSource, opts RunOptions) (*model.SyncReport, error) {
	report := &model.SyncReport{
		RunID:     uuid.NewString(),
		Source:    src.Name(),
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}
	log := s.logger.WithFields(logrus.Fields{"run_id": report.RunID, "source": report.Source, "dry_run": opts.DryRun})
	log.Info("开始同步")

	err := s.run(ctx, src, opts, report, log)
	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Fatal = err.Error()
		log.WithError(err).Error("同步中止")
	} else {
		log.WithFields(logrus.Fields{
			"rows":             report.Rows,
			"created":          report.Created,
			"updated":          report.Updated,
			"skipped":          report.Skipped,
			"failed":           report.Failed,
			"entities_created": report.EntitiesCreated,
			"duration":         report.Duration.String(),
		}).Info("同步完成")
	}
	s.saveRun(report, log)
	return report, err
}

func (s *SyncService) run(ctx context.Context, src interfaces.RowSource, opts RunOptions, report *model.SyncReport, log *logrus.Entry) error {
	rows, err := src.Rows(ctx)
	if err != nil {
		return &FatalError{Op: "read", Err: err}
	}
	report.Rows = len(rows)
	if len(rows) == 0 {
		log.Warn("数据源没有任何行")
		return nil
	}

	// 每次运行独立的解析缓存
	resolver := NewResolver(s.store, s.cfg, opts.DryRun, s.logger)
	index := NewGameIndex(s.store, s.cfg.Store.Tables.Games, s.cfg.Store.Tables.GameIDField, s.cfg.Sync.StrictLookup, s.logger)

	outcomes := make([]rowOutcome, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.Sync.Concurrency))
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			out, err := s.processRow(gctx, row.Line, row.Cells, resolver, index)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	err = g.Wait()
	report.EntitiesCreated = resolver.Created()
	if err != nil {
		return &FatalError{Op: "classify", Err: err}
	}

	creates, updates := collect(outcomes, report, log)
	if opts.DryRun {
		report.Created, report.Updated = len(creates), len(updates)
		return nil
	}

	writer := NewBatchWriter(s.store, s.cfg.Store.Tables.Games, s.logger)
	res, err := writer.Flush(ctx, creates, updates)
	report.Created += res.Created
	report.Updated += res.Updated
	report.Failed += res.Failed
	for _, f := range res.Failures {
		report.BatchErrors = append(report.BatchErrors, model.BatchFailure{
			Op:      f.Op,
			Chunk:   f.Chunk,
			GameIDs: f.GameIDs,
			Error:   f.Err.Error(),
		})
	}
	if err != nil {
		return &FatalError{Op: "flush", Err: err}
	}
	return nil
}

// processRow 处理单行，rowNum 为源文件行号；返回 error 仅表示致命错误
func (s *SyncService) processRow(ctx context.Context, rowNum int, row model.RawRow, resolver *Resolver, index *GameIndex) (rowOutcome, error) {
	game, err := s.normalizer.Normalize(row)
	if errors.Is(err, ErrSkipRow) {
		return rowOutcome{kind: rowSkipped}, nil
	}
	if err != nil {
		return s.fail(rowNum, row[s.cfg.Sync.Columns.GameID], model.StageNormalize, err), nil
	}

	fields, err := s.buildFields(ctx, game, resolver)
	if err != nil {
		if isFatal(err) {
			return rowOutcome{}, err
		}
		return s.fail(rowNum, game.GameID, model.StageResolve, err), nil
	}

	id, found, err := index.FindExisting(ctx, game.GameID)
	if err != nil {
		if isFatal(err) {
			return rowOutcome{}, err
		}
		return s.fail(rowNum, game.GameID, model.StageClassify, err), nil
	}

	write := model.PendingWrite{Row: rowNum, GameID: game.GameID, Record: model.RemoteRecord{ID: id, Fields: fields}}
	if found {
		return rowOutcome{kind: rowUpdate, write: write}, nil
	}
	return rowOutcome{kind: rowCreate, write: write}, nil
}

func (s *SyncService) fail(rowNum int, gameID string, stage model.Stage, err error) rowOutcome {
	rowErr := &RowError{Row: rowNum, GameID: gameID, Stage: stage, Err: err}
	s.logger.WithError(err).WithFields(logrus.Fields{
		"row":     rowNum,
		"game_id": gameID,
		"stage":   stage,
	}).Warn("行处理失败，已跳过")
	return rowOutcome{kind: rowFailed, err: rowErr}
}

// buildFields 解析所有引用实体，生成比赛表字段；无人的裁判位置不写入（保留远端原值）
func (s *SyncService) buildFields(ctx context.Context, g *model.CanonicalGame, resolver *Resolver) (model.Fields, error) {
	home, err := resolver.Resolve(ctx, model.EntityTeam, g.HomeTeam)
	if err != nil {
		return nil, err
	}
	away, err := resolver.Resolve(ctx, model.EntityTeam, g.AwayTeam)
	if err != nil {
		return nil, err
	}
	location, err := resolver.Resolve(ctx, model.EntityLocation, g.Location)
	if err != nil {
		return nil, err
	}

	fields := model.Fields{
		model.FieldGameID:   g.GameID,
		model.FieldDate:     g.ScheduledAt.UTC().Format(time.RFC3339),
		model.FieldHomeTeam: []string{home},
		model.FieldAwayTeam: []string{away},
		model.FieldLocation: []string{location},
		model.FieldField:    g.Field,
	}
	if g.Level != "" {
		fields[model.FieldLevel] = g.Level
	}
	if g.Position != "" {
		fields[model.FieldPosition] = string(g.Position)
	}
	for _, slot := range g.Officials {
		if slot.Name == nil {
			continue
		}
		id, err := resolver.Resolve(ctx, model.EntityOfficial, *slot.Name)
		if err != nil {
			return nil, err
		}
		fields[string(slot.Role)] = []string{id}
	}
	return fields, nil
}

// collect 按输入顺序汇总结果；同一比赛编号出现多次时以最后一行为准，之前的行计为跳过
func collect(outcomes []rowOutcome, report *model.SyncReport, log *logrus.Entry) (creates, updates []model.PendingWrite) {
	last := make(map[string]int)
	for i, o := range outcomes {
		if o.kind == rowCreate || o.kind == rowUpdate {
			last[o.write.GameID] = i
		}
	}
	for i, o := range outcomes {
		switch o.kind {
		case rowSkipped:
			report.Skipped++
		case rowFailed:
			report.Failed++
			report.RowErrors = append(report.RowErrors, model.RowFailure{
				Row:    o.err.Row,
				GameID: o.err.GameID,
				Stage:  o.err.Stage,
				Error:  o.err.Err.Error(),
			})
		case rowCreate, rowUpdate:
			if last[o.write.GameID] != i {
				report.Skipped++
				log.WithFields(logrus.Fields{"row": o.write.Row, "game_id": o.write.GameID}).Warn("比赛编号重复，以后出现的行为准")
				continue
			}
			if o.kind == rowCreate {
				creates = append(creates, o.write)
			} else {
				updates = append(updates, o.write)
			}
		}
	}
	return creates, updates
}

func (s *SyncService) saveRun(report *model.SyncReport, log *logrus.Entry) {
	if s.runs == nil {
		return
	}
	// 请求上下文可能已取消，历史记录使用独立超时
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runs.SaveRun(ctx, report); err != nil {
		log.WithError(err).Warn("保存同步历史失败")
	}
}
