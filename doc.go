// Package reach controls the REACH tendon-driven manipulator: four motors
// on two RoboClaw controllers, every move confirmed from encoder telemetry,
// with load cells recording the forces along the way.
//
// # Installation
//
//	go install github.com/reach-rig/reach/cmd/reach@latest
//
// # Usage
//
// First, run setup to find both motor controllers:
//
//	reach setup
//
// Then check the motors and sweep the workspace:
//
//	reach probe
//	reach sweep
//
// Or drive the motors by hand:
//
//	reach teleoperate
//
// Every command accepts --sim to run against in-memory boards.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/reach: CLI with setup, sweep, teleoperate, move, forces and probe commands
//   - pkg/motion: Motor routing table, move dispatch and verification
//   - pkg/roboclaw: RoboClaw packet serial driver
//   - pkg/loadcell: Load cell channels, force conversion and CSV recording
//   - pkg/robot: Arm, load cell calibration and configuration
//   - pkg/sweep: Workspace sweep runner
//   - pkg/teleop: Teleoperation controller
package reach
