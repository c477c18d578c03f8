package status

const (
	Waiting = iota
	Running
	OK
	Error
	Stopped
)

// Name 返回状态码对应的名称，用于命令行输出。
func Name(code int) string {
	switch code {
	case Waiting:
		return "waiting"
	case Running:
		return "running"
	case OK:
		return "ok"
	case Error:
		return "error"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
