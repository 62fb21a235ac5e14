package middleware

import (
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const internalErrorBody = `{"status":500,"message":"An unexpected error occurred.","errorType":"Internal"}`

// Recoverer は panic を回復し、内部情報を含まない 500 応答を返します。
// 応答ヘッダーが送信済みの場合は記録のみ行い、応答には手を加えません。
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					zap.String("request_id", chimw.GetReqID(r.Context())),
					zap.Any("panic", rec),
					zap.Bool("headers_written", ww.Status() != 0),
					zap.ByteString("stack", debug.Stack()),
				)

				if ww.Status() != 0 {
					return
				}

				ww.Header().Set("Content-Type", "application/json; charset=utf-8")
				ww.WriteHeader(http.StatusInternalServerError)
				_, _ = ww.Write([]byte(internalErrorBody))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
