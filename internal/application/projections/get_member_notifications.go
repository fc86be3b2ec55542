package projections

import (
	"context"

	"gymdesk/internal/application/listutil"
	domainNotification "gymdesk/internal/domain/notification"
)

// MemberNotificationStore defines the store interface needed by this projection.
type MemberNotificationStore interface {
	ListByUserID(ctx context.Context, userID string) ([]domainNotification.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// GetMemberNotificationsDeps holds dependencies for the projection.
type GetMemberNotificationsDeps struct {
	NotificationStore MemberNotificationStore
	Page              listutil.PageParams // zero value means first page of DefaultPerPage
}

// MemberNotificationsResult is a member's notification feed.
type MemberNotificationsResult struct {
	Notifications []domainNotification.Notification `json:"notifications"`
	Unread        int                               `json:"unread"`
	Page          listutil.PageInfo                 `json:"page"`
}

// QueryGetMemberNotifications returns one page of the member's notifications, newest first.
// PRE: memberID is non-empty
// POST: Unread counts all notifications without a read time, not just this page
func QueryGetMemberNotifications(ctx context.Context, memberID string, deps GetMemberNotificationsDeps) (MemberNotificationsResult, error) {
	list, err := deps.NotificationStore.ListByUserID(ctx, memberID)
	if err != nil {
		return MemberNotificationsResult{}, err
	}
	unread, err := deps.NotificationStore.CountUnread(ctx, memberID)
	if err != nil {
		return MemberNotificationsResult{}, err
	}
	page, info := listutil.Paginate(list, deps.Page)
	return MemberNotificationsResult{Notifications: page, Unread: unread, Page: info}, nil
}
