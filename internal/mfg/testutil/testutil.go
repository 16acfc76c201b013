package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret = "nimo-mfg-test-secret"
	JWTIssuer = "nimo-plm"
)

var dbSeq atomic.Int64

// SetupTestDB 为每个测试创建独立的内存SQLite库并迁移生产模块表。
// 单连接保证同一事务内外的语句串行执行。
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:mfg_test_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter 测试用gin引擎
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup 带JWT认证的路由组
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret, JWTIssuer))
}

// GenerateTestToken 生成测试token
func GenerateTestToken(userID, name string, permissions []string) string {
	if permissions == nil {
		permissions = []string{}
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": userID + "@test.com",
		"roles": []string{},
		"perms": permissions,
		"iss":   JWTIssuer,
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken 拥有全部权限的测试用户
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Planner", []string{"*"})
}

// DoRequest 对测试路由发起请求
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse 解析 {code, message, data} 响应
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Data 取响应中的data对象
func Data(w *httptest.ResponseRecorder) map[string]interface{} {
	data, _ := ParseResponse(w)["data"].(map[string]interface{})
	return data
}

// SeedItem 写入物料
func SeedItem(t *testing.T, db *gorm.DB, code, name string, rate float64) *entity.Item {
	t.Helper()
	item := &entity.Item{
		ID:            uuid.New().String(),
		ItemCode:      code,
		Name:          name,
		StockUOM:      "Nos",
		ValuationRate: rate,
		IsStockItem:   true,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to seed item: %v", err)
	}
	return item
}

// SeedWorkstation 写入工作站
func SeedWorkstation(t *testing.T, db *gorm.DB, name string, hourRate float64) *entity.Workstation {
	t.Helper()
	ws := &entity.Workstation{
		ID:                 uuid.New().String(),
		Name:               name,
		WorkstationType:    "assembly",
		HourRate:           hourRate,
		WorkingHoursPerDay: 8,
		Status:             entity.WorkstationStatusActive,
		Version:            1,
	}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("Failed to seed workstation: %v", err)
	}
	return ws
}
