package dto

// ListDependentRequest 依赖监听列表查询请求
type ListDependentRequest struct {
	Result string `form:"result" binding:"omitempty,oneof=WAITING SUCCESS FAILED"`
	State  string `form:"state" binding:"omitempty,oneof=WATCHING FINISHED TIMED_OUT CANCELLED"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// GetDefaultLimit 获取默认limit
func (r *ListDependentRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}
