/*
go-proctor implements the detection core of a camera based exam and
interview integrity monitor.  It samples a candidate's live video feed at a
fixed cadence, classifies each sample for anomalous conditions (absent face,
multiple faces, excessive head rotation, gaze diverted from the screen and
externally reported tab switches) and converts the noisy per frame signals
into debounced, confidence scored violation events plus a running session
risk score.

The root package holds the shared data model.  The detection pipeline is
composed from the subpackages: facedetect wraps the OpenCV YuNet face and
landmark detector, estimate derives head pose and gaze direction from facial
landmarks, classify turns one tick's detection result into raw violation
signals, track debounces those signals into confirmed episodes and monitor
runs the whole pipeline on a timer and publishes events.

See example code and usage in the example subdirectory.
*/
package proctor
