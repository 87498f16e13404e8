package clock

import "testing"

func TestUserTickAdvances(t *testing.T) {
    var u User
    if u.Idx() != 0 {
        t.Fatalf("fresh User.Idx() = %d, want 0", u.Idx())
    }
    for i := 1; i <= 5; i++ {
        u.Tick()
        if got := u.Idx(); got != uint64(i) {
            t.Fatalf("after %d ticks, Idx() = %d, want %d", i, got, i)
        }
    }
}

func TestExpiredRequiresBothAxes(t *testing.T) {
    cases := []struct {
        name                                    string
        touchedUs, nowUs, wallThreshold         uint64
        touchedIdx, nowIdx, userThreshold       uint64
        want                                    bool
    }{
        {"neither expired", 0, 5, 10, 0, 5, 10, false},
        {"only wall clock expired", 0, 11, 10, 0, 5, 10, false},
        {"only user clock expired", 0, 5, 10, 0, 11, 10, false},
        {"both expired", 0, 11, 10, 0, 11, 10, true},
        {"both exactly at threshold", 0, 10, 10, 0, 10, 10, true},
    }

    for _, c := range cases {
        t.Run(c.name, func(t *testing.T) {
            got := Expired(c.touchedUs, c.nowUs, c.wallThreshold, c.touchedIdx, c.nowIdx, c.userThreshold)
            if got != c.want {
                t.Fatalf("Expired() = %v, want %v", got, c.want)
            }
        })
    }
}

func TestNowMicrosIsMonotonicEnough(t *testing.T) {
    a := NowMicros()
    b := NowMicros()
    if b < a {
        t.Fatalf("NowMicros() went backwards: %d then %d", a, b)
    }
}
