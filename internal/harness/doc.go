// Package harness runs badge reconciliation scenarios as executable tests.
//
// A scenario declares recipes with fixed member lists, a flow of engine
// operations, and assertions on the trace and the final badge store. Each
// run gets a fresh SQLite database, a fake clock and a fixed run id, so
// traces are identical across runs and can be compared with golden files.
//
// # Scenario Format
//
//	name: python_lover
//	description: "Members are awarded once and stale holders revoked"
//	recipes:
//	  - slug: python-lover
//	    name: Python Lover
//	    image: badges/python.png
//	    members: [1, 2, 3]
//	setup:
//	  - op: sync_badges
//	flow:
//	  - op: sync_awards
//	    expect: { created: 3 }
//	  - op: set_members
//	    badge: python-lover
//	    users: [2, 3, 4]
//	  - op: sync_awards
//	    revoke: true
//	    expect: { created: 1, revoked: 1 }
//	assertions:
//	  - type: holders
//	    badge: python-lover
//	    users: [2, 3, 4]
//	  - type: event_count
//	    kind: revoked
//	    count: 1
//
// # Operations
//
//   - sync_badges, sync_awards, sync_counts, sync_all: engine passes, with
//     badges, exclude, update, revoke, batch_size, ids_limit, workers and
//     disable_notifications as options
//   - reset: delete every award of the selected badges
//   - grant, revoke: manual assignment of users to badge
//   - set_members: replace the member list of badge's recipe
//
// # Assertion Types
//
//   - holders: the exact set of users holding badge
//   - holder_count: the stored holder count of badge
//   - in_sync: every stored holder count matches its award count
//   - event_count: listener notifications of kind, optionally for one badge
//   - trace_contains: an op whose outcome includes the given fields
//   - trace_order: ops appear in the given order
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/python_lover.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
