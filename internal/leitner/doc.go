// Package leitner implements a Leitner-box spaced repetition scheduler.
//
// A Scheduler promotes a card one box on a correct answer and resets it to
// box 1 on a miss, with the box level deciding how long until the card is
// due again. Queues can be built in two modes: Smart presents only due
// cards, weakest first, while Cram presents the whole deck shuffled.
//
// Basic usage:
//
//	s, err := leitner.NewScheduler(leitner.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	card := leitner.NewCard("card-1", time.Now())
//	card, rlog, err := s.Review(card, leitner.Correct, time.Now())
package leitner
