// Package limits gates storage writes and gallery creation against the
// tenant's effective limits.
//
// Effective limits live on the subscription row as base plan values plus
// cached add-on extras, so a check never aggregates add-ons at request time.
// Usage is measured fresh on every check through a usage.Accountant.
//
// Two enforcement modes are provided:
//
//   - Enforcer: read-only checks for UI pre-validation and dashboards.
//     Between an Enforcer check and the actual insert another request can
//     consume the remaining capacity.
//   - Reserver: transactional check-and-insert. The subscription row is
//     locked FOR UPDATE, the usage query and the caller's insert run in the
//     same transaction, and the limit cannot be oversubscribed by
//     concurrent requests.
//
// Usage:
//
//	enforcer := limits.NewEnforcer(subs, accountant)
//	d, err := enforcer.CheckStorage(ctx, tenantID, fileSize)
//	if err != nil {
//		return err
//	}
//	if !d.Allowed {
//		return fmt.Errorf("upload rejected: %s", d.Reason)
//	}
//
//	reserver := limits.NewReserver(pool)
//	d, err = reserver.ReserveGallery(ctx, tenantID, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, `INSERT INTO galleries ...`)
//		return err
//	})
package limits
