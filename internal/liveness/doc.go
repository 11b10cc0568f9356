// Package liveness implements the dead man's switch.
//
// The owner proves they are alive by calling Ping, which atomically
// replaces the heartbeat file with the current time. Check compares the
// heartbeat with the grace period and, once it has lapsed, runs the
// release protocol:
//
//  1. take the advisory claim lock on <flag>.lock so only one process proceeds
//  2. load the fragment map
//  3. reassemble the will into the release directory
//  4. optionally seal it to the nominee's age recipient
//  5. notify the nominee, bounded by NotifyTimeout
//  6. create the trigger flag with O_EXCL
//  7. record confirmed delivery in <flag>.notified
//
// Any failure before step 6 leaves no flag, so the next Check starts over.
// Once the flag exists every Check reports ALREADY_EXECUTED; retrieval
// never runs again. If notification had failed, later checks retry the
// notification alone until it is confirmed, either by the marker or by the
// flag's own record of delivery.
//
// Checks within one process are serialized by a mutex. Checks from
// separate processes are serialized by the claim lock, which the kernel
// drops if its holder dies, and the exclusive creation of the flag is the
// final arbiter. A release is never cut short for being slow.
package liveness
