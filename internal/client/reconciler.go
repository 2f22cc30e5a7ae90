package client

import "github.com/bnema/webim-client/internal/domain"

// SessionParametersReconciler installs credentials discovered by the delta
// loop into the action loop, then forwards the change to an optional
// listener. The listener therefore observes the new credentials already in
// effect for any action it triggers.
type SessionParametersReconciler struct {
	actions *ActionLoop
	next    SessionParametersListener
}

var _ SessionParametersListener = (*SessionParametersReconciler)(nil)

func NewSessionParametersReconciler(actions *ActionLoop, next SessionParametersListener) *SessionParametersReconciler {
	return &SessionParametersReconciler{actions: actions, next: next}
}

func (r *SessionParametersReconciler) OnSessionParametersChanged(params domain.SessionParameters) {
	r.actions.SetAuthorizationData(params.Authorization)
	if r.next != nil {
		r.next.OnSessionParametersChanged(params)
	}
}
