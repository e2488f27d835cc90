package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ScreeningModulePrefix 筛选模块
	ScreeningModulePrefix = "screening"

	// EntityResults 筛选结果实体
	EntityResults = "results"

	// KeyScreeningResults 单次筛选的排序结果 (STRING, JSON)
	// 格式: app:screening:results:{requestID}
	KeyScreeningResults = AppPrefix + ":" + ScreeningModulePrefix + ":" + EntityResults + ":%s"

	// KeyScreeningLatest 最近一次筛选的 requestID (STRING)
	// 格式: app:screening:results:latest
	KeyScreeningLatest = AppPrefix + ":" + ScreeningModulePrefix + ":" + EntityResults + ":latest"

	// KeyScreeningHistory 最近筛选的 requestID 列表，长度受缓存容量限制 (LIST)
	// 格式: app:screening:results:history
	KeyScreeningHistory = AppPrefix + ":" + ScreeningModulePrefix + ":" + EntityResults + ":history"
)
