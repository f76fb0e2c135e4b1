package authapi

import (
	"context"
	"log/slog"
	"net"
)

// Audit events go to the structured log. Usernames are logged normalized;
// passwords never reach this file.

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, identifier, outcome string) {
	h.audit(ctx, slog.LevelWarn, "auth.login.failed",
		slog.String("identifier", identifier),
		slog.String("outcome", outcome),
		ipAttr(ip), slog.String("ua", ua))
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "auth.login.success",
		slog.String("user_id", userID),
		ipAttr(ip), slog.String("ua", ua))
}

func (h *Handler) auditPasswordChanged(ctx context.Context, userID string, ip net.IP) {
	h.audit(ctx, slog.LevelInfo, "auth.password.changed",
		slog.String("user_id", userID), ipAttr(ip))
}

func (h *Handler) auditPasswordRejected(ctx context.Context, userID string, ip net.IP, reason string) {
	h.audit(ctx, slog.LevelWarn, "auth.password.rejected",
		slog.String("user_id", userID), slog.String("reason", reason), ipAttr(ip))
}

func (h *Handler) auditLogout(ctx context.Context, userID string, ip net.IP) {
	h.audit(ctx, slog.LevelInfo, "auth.logout",
		slog.String("user_id", userID), ipAttr(ip))
}

func (h *Handler) audit(ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) {
	h.log.LogAttrs(ctx, level, event, attrs...)
}

func ipAttr(ip net.IP) slog.Attr {
	if ip == nil {
		return slog.String("ip", "")
	}
	return slog.String("ip", ip.String())
}
