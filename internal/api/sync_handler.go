package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/service"
	"ScheduleSync/internal/source"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxUploadBytes 上传 CSV 的大小上限
const maxUploadBytes = 10 << 20

type SyncHandler struct {
	syncService *service.SyncService
	runs        interfaces.RunRepository // 可为 nil：未连接数据库
	logger      *logrus.Logger

	// 同一进程内同一时间只允许一次同步
	running sync.Mutex
}

func NewSyncHandler(syncService *service.SyncService, runs interfaces.RunRepository, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		runs:        runs,
		logger:      logger,
	}
}

// RunSync 上传赛程 CSV 并执行同步
// POST /sync?dry_run=true  multipart 字段 file
func (h *SyncHandler) RunSync(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件字段 file"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "文件过大"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))

	if !h.running.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "已有同步正在进行"})
		return
	}
	defer h.running.Unlock()

	report, err := h.syncService.Run(c.Request.Context(), source.NewCSVReader(fh.Filename, data), service.RunOptions{DryRun: dryRun})
	if err != nil {
		h.logger.WithError(err).WithField("file", fh.Filename).Error("RunSync failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListRuns 同步历史
// GET /sync/runs?page=1&page_size=20
func (h *SyncHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "未配置数据库，同步历史不可用"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	runs, total, err := h.runs.ListRuns(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListRuns failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "page": page, "page_size": pageSize, "runs": runs})
}

// GetRun 单次同步详情
// GET /sync/runs/:run_id
func (h *SyncHandler) GetRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "未配置数据库，同步历史不可用"})
		return
	}
	runID := c.Param("run_id")
	run, err := h.runs.GetRun(c.Request.Context(), runID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "同步记录不存在"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("GetRun failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Healthz 存活检查
func (h *SyncHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
